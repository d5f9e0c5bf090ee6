// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mesh

import (
	"errors"
	"testing"
)

func TestNumDOF(t *testing.T) {
	want := map[int]int{1: 3, 2: 6, 3: 10, 4: 15, 5: 21, 6: 28}
	for k, n := range want {
		if got := NumDOF(k); got != n {
			t.Errorf("NumDOF(%d) = %d, want %d", k, got, n)
		}
	}
}

func TestFieldCheckMismatch(t *testing.T) {
	for k := 1; k <= MaxOrder; k++ {
		f := &Field{Components: 1, Order: k, Values: make([]float32, 2*NumDOF(k))}
		if err := f.Check(2); err != nil {
			t.Errorf("order %d: Check(2) = %v", k, err)
		}
		f.Values = f.Values[:len(f.Values)-1]
		if err := f.Check(2); !errors.Is(err, ErrStructuralMismatch) {
			t.Errorf("order %d: short field Check(2) = %v, want ErrStructuralMismatch", k, err)
		}
	}
}

func TestFieldEncodeHeader(t *testing.T) {
	f := &Field{Components: 2, Order: 3, Values: make([]float32, 2*NumDOF(3))}
	buf := f.Encode()
	if uint64(len(buf)) != FieldBufferSize(1, 3, 2) {
		t.Fatalf("encoded %d bytes, want %d", len(buf), FieldBufferSize(1, 3, 2))
	}
	got, err := DecodeField(buf, 1)
	if err != nil {
		t.Fatalf("DecodeField failed: %v", err)
	}
	if got.Components != 2 || got.Order != 3 {
		t.Errorf("header = [%d, %d], want [2, 3]", got.Components, got.Order)
	}
	if _, err := DecodeField(buf, 2); !errors.Is(err, ErrStructuralMismatch) {
		t.Errorf("DecodeField with wrong triangle count = %v, want ErrStructuralMismatch", err)
	}
}
