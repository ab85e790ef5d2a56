package shopping

import "strings"

// EditResult is the outcome of one edit batch.
type EditResult struct {
	Categories *CategoryMap
	Executed   int
	Skipped    int
	Changed    bool
}

// Apply runs ops in order against a copy of cm. Each operation sees the result
// of the previous ones. cm itself is left untouched.
func Apply(cm *CategoryMap, ops []Operation, lang string, est PriceEstimator) EditResult {
	out := cm.Clone()
	res := EditResult{Categories: out}

	for _, op := range ops {
		var ok bool
		switch o := op.(type) {
		case Add:
			ok = applyAdd(out, o, lang, est)
		case Remove:
			ok = applyRemove(out, o)
		case Replace:
			ok = applyReplace(out, o, lang, est)
		case Update:
			ok = applyUpdate(out, o, lang, est)
		}
		if ok {
			res.Executed++
		} else {
			res.Skipped++
		}
	}

	out.Prune()
	res.Changed = !out.Equal(cm)
	return res
}

func applyAdd(cm *CategoryMap, op Add, lang string, est PriceEstimator) bool {
	if op.NewItem == "" {
		return false
	}
	label := op.Category
	if label == "" {
		label, _ = classify(cm, op.NewItem)
	}
	if label == "" {
		label = OtherCategory(lang)
	}
	cm.Append(label, newItem(op.NewItem, op.Quantity, lang, est))
	return true
}

func applyRemove(cm *CategoryMap, op Remove) bool {
	if op.Target == "" {
		return false
	}
	target := fold(op.Target)
	for _, label := range append([]string(nil), cm.Keys()...) {
		var kept []LineItem
		for _, item := range cm.Items(label) {
			if !strings.Contains(fold(item.Name), target) {
				kept = append(kept, item)
			}
		}
		if len(kept) == 0 {
			cm.Delete(label)
			continue
		}
		cm.Set(label, kept)
	}
	return true
}

func applyReplace(cm *CategoryMap, op Replace, lang string, est PriceEstimator) bool {
	if op.Target == "" {
		return false
	}
	target := fold(op.Target)
	for _, label := range cm.Keys() {
		items := cm.Items(label)
		for i, item := range items {
			if !strings.Contains(fold(item.Name), target) {
				continue
			}
			replaced := append([]LineItem(nil), items...)
			replaced[i] = newItem(op.NewItem, op.Quantity, lang, est)
			cm.Set(label, replaced)
			return true
		}
	}
	return true
}

func applyUpdate(cm *CategoryMap, op Update, lang string, est PriceEstimator) bool {
	if op.Target == "" {
		return false
	}
	target := fold(op.Target)
	for _, label := range cm.Keys() {
		items := append([]LineItem(nil), cm.Items(label)...)
		for i := range items {
			if !strings.Contains(fold(items[i].Name), target) {
				continue
			}
			items[i].Quantity = op.Quantity
			if items[i].PriceInfo != nil {
				items[i].setPrice(estimate(est, items[i].Name, op.Quantity, lang))
			}
		}
		cm.Set(label, items)
	}
	return true
}

// TogglePurchased flips the purchased flag of the first item in category named
// exactly name. It returns a copy of cm and whether an item was found.
func TogglePurchased(cm *CategoryMap, category, name string) (*CategoryMap, bool) {
	out := cm.Clone()
	items := out.Items(category)
	for i := range items {
		if items[i].Name == name {
			items[i].Purchased = !items[i].Purchased
			return out, true
		}
	}
	return out, false
}

// TogglePurchasedAt flips the purchased flag of the item at position itemIndex
// of the category at position categoryIndex. Positions follow Keys and Items.
func TogglePurchasedAt(cm *CategoryMap, categoryIndex, itemIndex int) (*CategoryMap, bool) {
	out := cm.Clone()
	keys := out.Keys()
	if categoryIndex < 0 || categoryIndex >= len(keys) {
		return out, false
	}
	items := out.Items(keys[categoryIndex])
	if itemIndex < 0 || itemIndex >= len(items) {
		return out, false
	}
	items[itemIndex].Purchased = !items[itemIndex].Purchased
	return out, true
}
