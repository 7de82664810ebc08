package app

import (
	"encoding/json"

	"github.com/dkeye/voicerelay/internal/domain"
	"github.com/dkeye/voicerelay/internal/protocol"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Relay forwards call negotiation to every connection bound to the target
// user id. It keeps no state; an absent target means nobody receives it.
type Relay struct {
	Registry *Registry
	Out      *Broadcaster
}

func NewRelay(reg *Registry, out *Broadcaster) *Relay {
	return &Relay{Registry: reg, Out: out}
}

func (r *Relay) Offer(p *protocol.Offer) int {
	return r.forward(p.Target, protocol.OfferRelay{Sender: p.Sender, SDP: p.SDP}, func(ev *zerolog.Event) {
		inspectSDP(ev, webrtc.SDPTypeOffer, p.SDP)
	})
}

func (r *Relay) Answer(p *protocol.Answer) int {
	return r.forward(p.Target, protocol.AnswerRelay{Sender: p.Sender, SDP: p.SDP}, func(ev *zerolog.Event) {
		inspectSDP(ev, webrtc.SDPTypeAnswer, p.SDP)
	})
}

func (r *Relay) Candidate(p *protocol.IceCandidate) int {
	return r.forward(p.Target, protocol.CandidateRelay{Sender: p.Sender, Candidate: p.Candidate}, func(ev *zerolog.Event) {
		inspectCandidate(ev, p.Candidate)
	})
}

func (r *Relay) forward(target string, msg protocol.Outbound, inspect func(*zerolog.Event)) int {
	recipients := r.Registry.ByUser(domain.UserID(target))
	sent := r.Out.Deliver(recipients, msg)
	if ev := log.Debug(); ev.Enabled() {
		inspect(ev)
		ev.Str("module", "app.relay").
			Str("type", msg.Type()).
			Str("target", target).
			Int("recipients", len(recipients)).
			Int("sent", sent).
			Msg("relayed")
	}
	return sent
}

// inspectSDP only annotates the log line; the payload is forwarded as-is
// even when pion cannot parse it.
func inspectSDP(ev *zerolog.Event, typ webrtc.SDPType, raw string) {
	sd := webrtc.SessionDescription{Type: typ, SDP: raw}
	parsed, err := sd.Unmarshal()
	if err != nil {
		ev.Str("sdp_error", err.Error())
		return
	}
	media := make([]string, 0, len(parsed.MediaDescriptions))
	for _, md := range parsed.MediaDescriptions {
		media = append(media, md.MediaName.Media)
	}
	ev.Strs("media", media)
}

// The browser sends the candidate as a JSON-encoded RTCIceCandidateInit.
func inspectCandidate(ev *zerolog.Event, raw string) {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal([]byte(raw), &init); err != nil {
		ev.Str("candidate_error", err.Error())
		return
	}
	if init.SDPMid != nil {
		ev.Str("mid", *init.SDPMid)
	}
}
