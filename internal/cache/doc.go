// Package cache provides a small generic LRU cache whose evicted values are
// handed to a release callback. fieldview uses it to keep compiled shader
// modules per composed source, releasing the GPU module on eviction.
//
//	c := cache.New[string, *Shader](8, func(_ string, s *Shader) { s.destroy() })
//	s, err := c.GetOrCreate(key, compile)
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
