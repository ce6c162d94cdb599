package game

// Reason tells a renderer why the state changed so it can pick a full or partial refresh.
type Reason string

const (
	ReasonTick              Reason = "tick"
	ReasonClick             Reason = "click"
	ReasonPurchase          Reason = "purchase"
	ReasonConversion        Reason = "conversion"
	ReasonUnlock            Reason = "unlock"
	ReasonInsufficientFunds Reason = "insufficient-funds"
)

// Notification is delivered to the observer after a state change.
// Snapshot is a detached copy taken after the whole call has been applied.
type Notification struct {
	Seq      uint64         `json:"seq"`
	Reason   Reason         `json:"reason"`
	Entity   string         `json:"entity,omitempty"` // Resource, upgrade, conversion, or rule flag involved
	Unlocked []UnlockTarget `json:"unlocked,omitempty"`
	Message  string         `json:"message,omitempty"`
	Snapshot Snapshot       `json:"snapshot"`
}

// Observer receives state change notifications. Implementations are called while the
// engine is mid-call and must not call back into it.
type Observer interface {
	OnStateChanged(n Notification)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(n Notification)

func (f ObserverFunc) OnStateChanged(n Notification) { f(n) }

// Observers fans a notification out to several observers in order.
type Observers []Observer

func (obs Observers) OnStateChanged(n Notification) {
	for _, o := range obs {
		o.OnStateChanged(n)
	}
}
