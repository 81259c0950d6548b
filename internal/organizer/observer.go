package organizer

import "fjacquet/fiscal-organizer/internal/models"

// Observer is notified as a run progresses. Calls happen on the
// organizing goroutine, in document order.
type Observer interface {
	ObserveDocument(outcome models.DocumentOutcome)
	ObserveRun(run models.RunRecord)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Document func(models.DocumentOutcome)
	Run      func(models.RunRecord)
}

// ObserveDocument implements Observer.
func (f ObserverFuncs) ObserveDocument(outcome models.DocumentOutcome) {
	if f.Document != nil {
		f.Document(outcome)
	}
}

// ObserveRun implements Observer.
func (f ObserverFuncs) ObserveRun(run models.RunRecord) {
	if f.Run != nil {
		f.Run(run)
	}
}
