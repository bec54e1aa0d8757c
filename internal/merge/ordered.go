package merge

import "sort"

// OrderedSet 是按插入顺序保存、精确字符串去重的集合。空串不入集。
type OrderedSet struct {
	items []string
	index map[string]int
}

func NewOrderedSet() *OrderedSet {
	return &OrderedSet{index: map[string]int{}}
}

// Add 插入 s；已存在或为空时返回 false。
func (o *OrderedSet) Add(s string) bool {
	if s == "" {
		return false
	}
	if _, ok := o.index[s]; ok {
		return false
	}
	o.index[s] = len(o.items)
	o.items = append(o.items, s)
	return true
}

func (o *OrderedSet) Contains(s string) bool {
	_, ok := o.index[s]
	return ok
}

// Remove 删除 s 并保持其余元素的相对顺序。
func (o *OrderedSet) Remove(s string) {
	i, ok := o.index[s]
	if !ok {
		return
	}
	o.items = append(o.items[:i], o.items[i+1:]...)
	delete(o.index, s)
	for j := i; j < len(o.items); j++ {
		o.index[o.items[j]] = j
	}
}

func (o *OrderedSet) Len() int { return len(o.items) }

// Values 返回副本（永不为 nil）。
func (o *OrderedSet) Values() []string {
	out := make([]string, len(o.items))
	copy(out, o.items)
	return out
}

// WeightedSet 是 name -> weight 的有序映射：排序时同权重按插入顺序。
type WeightedSet struct {
	names   []string
	weights map[string]int
}

func NewWeightedSet() *WeightedSet {
	return &WeightedSet{weights: map[string]int{}}
}

// Add 仅在 name 不存在时插入。
func (w *WeightedSet) Add(name string, weight int) bool {
	if name == "" {
		return false
	}
	if _, ok := w.weights[name]; ok {
		return false
	}
	w.names = append(w.names, name)
	w.weights[name] = weight
	return true
}

// Set 强制设置权重；不存在时插入到末尾。
func (w *WeightedSet) Set(name string, weight int) {
	if name == "" {
		return
	}
	if _, ok := w.weights[name]; !ok {
		w.names = append(w.names, name)
	}
	w.weights[name] = weight
}

func (w *WeightedSet) Weight(name string) (int, bool) {
	v, ok := w.weights[name]
	return v, ok
}

func (w *WeightedSet) Len() int { return len(w.names) }

// Top 按权重降序返回最多 limit 个名称（limit<=0 表示不限）；结果永不为 nil。
func (w *WeightedSet) Top(limit int) []string {
	names := make([]string, len(w.names))
	copy(names, w.names)
	sort.SliceStable(names, func(i, j int) bool {
		return w.weights[names[i]] > w.weights[names[j]]
	})
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names
}
