package deepq

// Schedule returns the learning rate to use at some epoch given the
// base learning rate
type Schedule func(epoch int, lr float64) float64

// StepDecay returns a Schedule which divides the base learning rate by
// factor once the epoch reaches threshold
func StepDecay(threshold int, factor float64) Schedule {
	return func(epoch int, lr float64) float64 {
		if epoch >= threshold {
			return lr / factor
		}
		return lr
	}
}

// DefaultSchedule divides the learning rate by 10 from epoch 70 onwards
var DefaultSchedule Schedule = StepDecay(70, 10)
