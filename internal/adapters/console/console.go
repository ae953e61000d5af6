// Package console renders the call screen's navigation and toasts for the
// terminal client.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

// Navigator records where the call screen sent the user and closes Done on
// the first navigation.
type Navigator struct {
	once  sync.Once
	mu    sync.Mutex
	route string
	done  chan struct{}
}

func NewNavigator() *Navigator {
	return &Navigator{done: make(chan struct{})}
}

func (n *Navigator) Navigate(route string) {
	log.Info().Str("module", "console").Str("route", route).Msg("navigate")
	n.once.Do(func() {
		n.mu.Lock()
		n.route = route
		n.mu.Unlock()
		close(n.done)
	})
}

func (n *Navigator) Done() <-chan struct{} { return n.done }

func (n *Navigator) Route() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}

// Notifier writes toasts as single lines.
type Notifier struct {
	mu  sync.Mutex
	out io.Writer
}

func NewNotifier(out io.Writer) *Notifier {
	return &Notifier{out: out}
}

func (n *Notifier) Success(msg string) { n.toast("ok", msg) }
func (n *Notifier) Info(msg string)    { n.toast("info", msg) }

func (n *Notifier) Error(msg string) {
	log.Warn().Str("module", "console").Str("toast", msg).Msg("error toast")
	n.toast("error", msg)
}

func (n *Notifier) toast(level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "[%s] %s\n", level, msg)
}
