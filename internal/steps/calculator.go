package steps

// Calculator step phrases.
const (
	PhraseEntered  = "I have entered {n} into the calculator"
	PhraseAdd      = "I add {n}"
	PhraseSubtract = "I subtract {n}"
	PhraseResult   = "the result should be {n}"
)

// Default returns a registry holding the calculator phrase table.
func Default() *Registry {
	r := NewRegistry()
	r.MustRegister(Given, PhraseEntered, func(w *World, args []int) error {
		w.Calc.SetValue(args[0])
		return nil
	})
	r.MustRegister(When, PhraseAdd, func(w *World, args []int) error {
		w.Result = w.Calc.Add(args[0])
		return nil
	})
	r.MustRegister(When, PhraseSubtract, func(w *World, args []int) error {
		w.Result = w.Calc.Subtract(args[0])
		return nil
	})
	r.MustRegister(Then, PhraseResult, func(w *World, args []int) error {
		if w.Result != args[0] {
			return &MismatchError{Expected: args[0], Actual: w.Result}
		}
		return nil
	})
	return r
}
