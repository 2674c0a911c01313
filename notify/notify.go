// Package notify delivers short user-visible messages about a test result.
package notify

import (
	"errors"
	"time"

	"github.com/gen2brain/beeep"
)

type Kind int

const (
	Info Kind = iota
	Success
	Failure
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "info"
	}
}

type Notification struct {
	Kind    Kind
	Title   string
	Message string
	Time    time.Time
}

type Notifier interface {
	Notify(n Notification) error
}

// Func adapts a function to Notifier.
type Func func(n Notification)

func (f Func) Notify(n Notification) error {
	f(n)
	return nil
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(n Notification) error {
	var errs []error
	for _, nt := range m {
		if nt == nil {
			continue
		}
		if err := nt.Notify(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Desktop shows notifications through the OS notification center.
type Desktop struct {
	Icon string
}

func (d Desktop) Notify(n Notification) error {
	if n.Kind == Failure {
		return beeep.Alert(n.Title, n.Message, d.Icon)
	}
	return beeep.Notify(n.Title, n.Message, d.Icon)
}
