// Package peer accepts WebRTC peers whose "input" DataChannel carries the
// same command frames as the /ws endpoint.
package peer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

// InputLabel is the DataChannel label commands travel on.
const InputLabel = "input"

var ErrClosed = errors.New("peer: manager closed")

// FrameHandler turns a command frame into its reply; nil means no reply.
type FrameHandler interface {
	HandleFrame(data []byte) []byte
}

// Manager owns every live peer connection.
type Manager struct {
	api     *webrtc.API
	config  webrtc.Configuration
	handler FrameHandler
	log     logging.LeveledLogger

	mu     sync.Mutex
	peers  map[string]*webrtc.PeerConnection
	closed bool
}

func NewManager(iceServers []string, handler FrameHandler, factory logging.LoggerFactory) *Manager {
	se := webrtc.SettingEngine{LoggerFactory: factory}
	var config webrtc.Configuration
	if len(iceServers) > 0 {
		config.ICEServers = []webrtc.ICEServer{{URLs: iceServers}}
	}
	return &Manager{
		api:     webrtc.NewAPI(webrtc.WithSettingEngine(se)),
		config:  config,
		handler: handler,
		log:     factory.NewLogger("peer"),
		peers:   make(map[string]*webrtc.PeerConnection),
	}
}

// Answer accepts a remote offer and returns the peer id and the local answer
// once ICE gathering has completed, so no trickle signaling is needed.
func (m *Manager) Answer(ctx context.Context, offer webrtc.SessionDescription) (string, *webrtc.SessionDescription, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return "", nil, ErrClosed
	}

	pc, err := m.api.NewPeerConnection(m.config)
	if err != nil {
		return "", nil, fmt.Errorf("new pc: %w", err)
	}
	id := uuid.NewString()

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != InputLabel {
			m.log.Debugf("peer %s: ignoring data channel %q", id, dc.Label())
			return
		}
		dc.OnOpen(func() { m.log.Infof("peer %s: input channel open", id) })
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			if !msg.IsString {
				return
			}
			if reply := m.handler.HandleFrame(msg.Data); reply != nil {
				if err := dc.SendText(string(reply)); err != nil {
					m.log.Warnf("peer %s: send reply: %v", id, err)
				}
			}
		})
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		m.log.Debugf("peer %s: connection state %s", id, s)
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			m.drop(id)
		}
	})

	fail := func(step string, err error) (string, *webrtc.SessionDescription, error) {
		pc.Close()
		return "", nil, fmt.Errorf("%s: %w", step, err)
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return fail("set remote", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fail("create answer", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return fail("set local", err)
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return fail("ice gathering", ctx.Err())
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fail("register", ErrClosed)
	}
	m.peers[id] = pc
	m.mu.Unlock()

	m.log.Infof("peer %s: answered", id)
	return id, pc.LocalDescription(), nil
}

// Count returns the number of live peers.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.peers)
}

func (m *Manager) drop(id string) {
	m.mu.Lock()
	pc, ok := m.peers[id]
	delete(m.peers, id)
	m.mu.Unlock()
	if ok {
		pc.Close()
	}
}

// Close closes every peer and refuses new offers.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	peers := m.peers
	m.peers = make(map[string]*webrtc.PeerConnection)
	m.mu.Unlock()

	var errs []error
	for _, pc := range peers {
		errs = append(errs, pc.Close())
	}
	return errors.Join(errs...)
}
