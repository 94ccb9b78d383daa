package treasury

// SameDisplay reports whether two display strings denote the same balance.
//
// Balances are compared on their display strings, not on their amounts: an
// amount that moved below the display precision (three fraction digits) is
// considered unchanged, and the change is reported once it becomes visible.
func SameDisplay(a, b string) bool {
	return a == b
}

// Observe computes the new state of an account balance given the previously
// recorded balance and the amount just observed.
//
// It returns the balance to record as previous and the change. When the
// display string did not move, previous is returned untouched and the change
// is NoChange. Otherwise the change is current - previous, and a zero delta
// (possible when previous.Str was not produced by f) is Negative.
func Observe(previous Balance, current Quantity, f *Formatter) (Balance, Change) {
	str := f.Format(current)
	if SameDisplay(str, previous.Str) {
		return previous, NoChange
	}
	delta := current.Sub(previous.Num)
	dir := Negative
	if delta.IsPositive() {
		dir = Positive
	}
	return Balance{Str: str, Num: current}, Change{
		Str:       f.Format(delta.Abs()),
		Num:       delta,
		Direction: dir,
	}
}

// Update applies an observed amount to a, as a cycle does.
// Current is always overwritten; Previous and Change follow Observe.
func (a *Account) Update(current Quantity, f *Formatter) {
	a.Previous, a.Change = Observe(a.Previous, current, f)
	a.Current = Balance{Str: f.Format(current), Num: current}
}
