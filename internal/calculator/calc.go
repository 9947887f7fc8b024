// Package calculator provides an integer accumulator with basic arithmetic.
//
// Arithmetic follows Go's int semantics: results that do not fit wrap around
// (two's complement). Overflow is not detected or reported.
package calculator

// Add returns the sum of a and b.
func Add(a, b int) int {
	return a + b
}

// Subtract returns a minus b.
func Subtract(a, b int) int {
	return a - b
}

// Calculator holds a single accumulator value. A zero Calculator is ready to
// use with a value of 0. It is not safe for concurrent use; give each
// scenario its own instance.
type Calculator struct {
	value int
}

// New returns a calculator whose accumulator is 0.
func New() *Calculator {
	return &Calculator{}
}

// SetValue seeds the accumulator with n.
func (c *Calculator) SetValue(n int) {
	c.value = n
}

// Value returns the current accumulator.
func (c *Calculator) Value() int {
	return c.value
}

// Add adds n to the accumulator and returns the new value.
func (c *Calculator) Add(n int) int {
	c.value = Add(c.value, n)
	return c.value
}

// Subtract subtracts n from the accumulator and returns the new value.
func (c *Calculator) Subtract(n int) int {
	c.value = Subtract(c.value, n)
	return c.value
}
