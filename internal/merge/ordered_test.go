package merge

import "testing"

func TestOrderedSet_AddRemoveKeepsOrder(t *testing.T) {
	s := NewOrderedSet()
	for _, v := range []string{"b", "a", "", "b", "c", "A"} {
		s.Add(v)
	}
	s.Remove("a")
	s.Remove("missing")
	got := s.Values()
	want := []string{"b", "c", "A"}
	if len(got) != len(want) {
		t.Fatalf("期望 %v，实际 %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("期望 %v，实际 %v", want, got)
		}
	}
	if !s.Contains("A") || s.Contains("a") {
		t.Fatalf("Contains 结果不正确")
	}
	s.Add("a")
	if v := s.Values(); v[len(v)-1] != "a" {
		t.Fatalf("Remove 后重新 Add 应排在末尾：%v", v)
	}
}

func TestOrderedSet_ValuesNeverNil(t *testing.T) {
	if NewOrderedSet().Values() == nil {
		t.Fatalf("Values 不应为 nil")
	}
}

func TestWeightedSet_TopStableAndCapped(t *testing.T) {
	w := NewWeightedSet()
	w.Add("x", 5)
	w.Add("y", 0)
	w.Add("x", 100)
	w.Add("z", 5)
	w.Set("y", 999)
	w.Set("new", 1)

	if v, _ := w.Weight("x"); v != 5 {
		t.Fatalf("Add 不应覆盖已有权重，实际 %d", v)
	}
	got := w.Top(0)
	want := []string{"y", "x", "z", "new"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("期望 %v，实际 %v", want, got)
		}
	}
	if got := w.Top(2); len(got) != 2 || got[0] != "y" || got[1] != "x" {
		t.Fatalf("Top(2) 不符合预期：%v", got)
	}
}
