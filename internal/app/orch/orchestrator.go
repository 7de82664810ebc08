package orch

import (
	"sync"
	"time"

	"github.com/dkeye/voicerelay/internal/app"
	"github.com/dkeye/voicerelay/internal/core"
	"github.com/dkeye/voicerelay/internal/domain"
	"github.com/dkeye/voicerelay/internal/metrics"
	"github.com/dkeye/voicerelay/internal/protocol"
	"github.com/rs/zerolog/log"
)

const invalidPayload = "Invalid message payload"

// Orchestrator routes decoded envelopes to registry, presence, relay and
// ledger operations. It is shared by all connections.
type Orchestrator struct {
	Registry *app.Registry
	Ledger   *app.Ledger
	Presence *app.Broadcaster
	Relay    *app.Relay
	Metrics  metrics.Metrics

	// Now stamps chat messages; tests pin it.
	Now func() time.Time

	sessions sync.Map // core.ConnID -> *session
}

// session orders one connection's dispatches against its disconnect. A
// disconnect requested mid-dispatch runs when that dispatch returns.
type session struct {
	mu      sync.Mutex
	busy    bool
	pending bool
	gone    bool
}

func New(reg *app.Registry, ledger *app.Ledger, presence *app.Broadcaster, m metrics.Metrics) *Orchestrator {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Orchestrator{
		Registry: reg,
		Ledger:   ledger,
		Presence: presence,
		Relay:    app.NewRelay(reg, presence),
		Metrics:  m,
		Now:      time.Now,
	}
}

// Connect registers a freshly accepted connection as Anonymous.
func (o *Orchestrator) Connect(conn core.SignalConnection) core.ConnID {
	id := o.Registry.Register(conn)
	o.sessions.Store(id, &session{})
	o.Metrics.ConnectionOpened()
	return id
}

func (o *Orchestrator) begin(id core.ConnID) (*session, bool) {
	v, ok := o.sessions.Load(id)
	if !ok {
		return nil, false
	}
	s := v.(*session)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gone {
		return nil, false
	}
	s.busy = true
	return s, true
}

func (o *Orchestrator) end(id core.ConnID, s *session) {
	s.mu.Lock()
	s.busy = false
	pending := s.pending
	s.mu.Unlock()
	if pending {
		o.disconnect(id)
	}
}

// Handle decodes one inbound frame. A bad frame earns the sender a single
// Error reply and the connection stays open. Frames for an unknown or
// disconnected id are dropped. Callers feed one connection from one goroutine.
func (o *Orchestrator) Handle(id core.ConnID, data []byte) {
	s, ok := o.begin(id)
	if !ok {
		log.Debug().Str("module", "orch").Stringer("conn", id).Msg("frame after disconnect")
		return
	}
	defer o.end(id, s)

	msg, err := protocol.Decode(data)
	if err != nil {
		o.Metrics.DecodeFailed()
		log.Warn().Err(err).Str("module", "orch").Stringer("conn", id).Msg("bad envelope")
		o.Presence.Send(id, protocol.ErrorReply{Message: invalidPayload})
		return
	}
	o.Metrics.EnvelopeReceived(msg.Type())
	o.Dispatch(id, msg)
}

func (o *Orchestrator) Dispatch(id core.ConnID, msg protocol.Inbound) {
	switch m := msg.(type) {
	case *protocol.Identify:
		o.Identify(id, m)
	case *protocol.JoinRoom:
		o.Join(id, domain.RoomID(m.RoomID))
	case *protocol.LeaveRoom:
		o.Leave(id)
	case *protocol.ChatMessage:
		o.Chat(id, m)
	case *protocol.EditMessage:
		o.Edit(id, m)
	case *protocol.DeleteMessage:
		o.Delete(id, m)
	case *protocol.MessageRead:
		o.Read(id, m)
	case *protocol.Offer:
		o.Relay.Offer(m)
	case *protocol.Answer:
		o.Relay.Answer(m)
	case *protocol.IceCandidate:
		o.Relay.Candidate(m)
	case *protocol.MarketPurchase:
		o.Purchase(id, m)
	default:
		log.Warn().Str("module", "orch").Stringer("conn", id).Str("type", msg.Type()).Msg("unhandled envelope")
	}
}

// Identify binds or rebinds the identity. An existing room survives.
func (o *Orchestrator) Identify(id core.ConnID, p *protocol.Identify) {
	ident, err := domain.NewIdentity(p.UserID, p.Name, p.Avatar)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Stringer("conn", id).Msg("rejected identity")
		o.Presence.Send(id, protocol.ErrorReply{Message: err.Error()})
		return
	}
	if _, ok := o.Registry.BindIdentity(id, ident); !ok {
		return
	}
	o.Presence.Send(id, protocol.Identified{Success: true})
	o.Ledger.GetOrInit(ident.UserID)
	o.Presence.Send(id, protocol.GlobalVoiceState{States: o.Presence.VoiceStates()})
}

// OnDisconnect tears a connection down. It never runs concurrently with a
// dispatch for the same id: if one is in flight the teardown is left to it.
// Repeated calls announce the departure at most once.
func (o *Orchestrator) OnDisconnect(id core.ConnID) {
	if v, ok := o.sessions.Load(id); ok {
		s := v.(*session)
		s.mu.Lock()
		s.gone = true
		if s.busy {
			s.pending = true
			s.mu.Unlock()
			log.Debug().Str("module", "orch").Stringer("conn", id).Msg("disconnect deferred")
			return
		}
		s.mu.Unlock()
	}
	o.disconnect(id)
}

func (o *Orchestrator) disconnect(id core.ConnID) {
	o.sessions.Delete(id)
	e, ok := o.Registry.Unregister(id)
	if !ok {
		return
	}
	o.Metrics.ConnectionClosed()
	e.Conn.Close()
	if e.State() != core.InRoom {
		return
	}
	o.announceLeave(e, e.Room)
}

// Purchase trusts the user id carried in the payload.
func (o *Orchestrator) Purchase(id core.ConnID, p *protocol.MarketPurchase) {
	ok, balance := o.Ledger.TryDebit(domain.UserID(p.UserID), p.Price)
	o.Metrics.Purchase(ok)
	res := protocol.PurchaseResult{Success: ok, NewBalance: balance}
	if ok {
		res.Message = "Successfully purchased item: " + p.ItemID
	} else {
		res.Message = "Insufficient balance"
	}
	o.Presence.Send(id, res)
}
