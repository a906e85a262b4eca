package platform

import "context"

// Notifier shows desktop notifications through notify-send.
type Notifier struct {
	runner Runner
}

func NewNotifier(runner Runner) *Notifier {
	return &Notifier{runner: runnerOrDefault(runner)}
}

func (n *Notifier) Notify(ctx context.Context, title, message string) error {
	return n.runner.Run(ctx, "notify-send", "--urgency=normal", "--icon=appointment-soon", title, message)
}
