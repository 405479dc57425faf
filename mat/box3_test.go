package mat

import "testing"

func TestBox3Union(t *testing.T) {
	b := NewEmptyBox3().ExpandByPoint(NewVec3(1, 2, 3)).ExpandByPoint(NewVec3(-1, 5, 0))
	if b.Min != (Vec3{-1, 2, 0}) {
		t.Errorf("unexpected min: %+v", b.Min)
	}
	if b.Max != (Vec3{1, 5, 3}) {
		t.Errorf("unexpected max: %+v", b.Max)
	}

	b2 := NewEmptyBox3().ExpandByPoint(NewVec3(10, 10, 10))
	u := b.Union(b2)
	if u.Max != (Vec3{10, 10, 10}) {
		t.Errorf("unexpected union max: %+v", u.Max)
	}
}
