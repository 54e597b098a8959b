// Package telemetry publishes the robot's status over MQTT and accepts field
// mode commands from the same broker.
package telemetry

import (
	"encoding/json"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pierbot/go-controller/pkg/drive"
	"github.com/pierbot/go-controller/pkg/scheduler"
)

type Config struct {
	// Broker is the MQTT server URL, e.g. tcp://localhost:1883.  Telemetry is
	// off when it's empty.
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	// Topic carries status messages; Topic+"/mode" carries mode commands.
	Topic    string        `yaml:"topic"`
	Interval time.Duration `yaml:"interval"`
}

func DefaultConfig() Config {
	return Config{
		ClientID: "pierbot",
		Topic:    "pierbot/status",
		Interval: 100 * time.Millisecond,
	}
}

// Message is the JSON published on the status topic.  Feedback mirrors the
// robot's feedback channels: [0] is the right motor, [1] the left.
type Message struct {
	Mode      string            `json:"mode"`
	Left      drive.Throttle    `json:"left"`
	Right     drive.Throttle    `json:"right"`
	Feedback  [2]drive.Throttle `json:"feedback"`
	Phase     string            `json:"phase,omitempty"`
	Tick      uint64            `json:"tick"`
	Timestamp time.Time         `json:"timestamp"`
}

func MessageFor(st scheduler.Status) Message {
	return Message{
		Mode:      st.Mode.String(),
		Left:      st.Left,
		Right:     st.Right,
		Feedback:  [2]drive.Throttle{st.Right, st.Left},
		Phase:     st.Phase,
		Tick:      st.Tick,
		Timestamp: st.Time,
	}
}

// Publisher sends at most one status message per interval.  A nil Publisher
// does nothing, so callers needn't check whether telemetry is configured.
type Publisher struct {
	log      *zap.SugaredLogger
	client   mqtt.Client
	topic    string
	interval time.Duration

	lock     sync.Mutex
	lastSent time.Time
	dropped  int
	setMode  func(scheduler.Mode)
}

// New connects to the configured broker in the background.  It returns nil if
// no broker is configured.
func New(cfg Config, log *zap.SugaredLogger) *Publisher {
	if cfg.Broker == "" {
		log.Info("telemetry disabled: no broker configured")
		return nil
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	var p *Publisher
	opts.OnConnect = func(mqtt.Client) {
		log.Infow("connected to MQTT broker", "broker", cfg.Broker)
		p.onConnect()
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warnw("MQTT connection lost", "error", err)
	}
	client := mqtt.NewClient(opts)
	p = newPublisher(cfg, client, log)
	// With ConnectRetry set this token only completes once connected; don't
	// hold up startup for it.
	client.Connect()
	return p
}

func newPublisher(cfg Config, client mqtt.Client, log *zap.SugaredLogger) *Publisher {
	return &Publisher{
		log:      log,
		client:   client,
		topic:    cfg.Topic,
		interval: cfg.Interval,
	}
}

// Observe is a scheduler observer.  It never waits for the broker.
func (p *Publisher) Observe(st scheduler.Status) {
	if p == nil {
		return
	}
	p.lock.Lock()
	if !p.lastSent.IsZero() && st.Time.Sub(p.lastSent) < p.interval {
		p.lock.Unlock()
		return
	}
	p.lastSent = st.Time
	p.lock.Unlock()

	if !p.client.IsConnectionOpen() {
		p.lock.Lock()
		p.dropped++
		p.lock.Unlock()
		return
	}
	payload, err := json.Marshal(MessageFor(st))
	if err != nil {
		p.log.Errorw("failed to encode telemetry", "error", err)
		return
	}
	p.client.Publish(p.topic, 0, false, payload)
}

// Dropped counts the status messages skipped while disconnected.
func (p *Publisher) Dropped() int {
	if p == nil {
		return 0
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.dropped
}

// HandleModeCommands subscribes to Topic+"/mode" and calls setMode with each
// mode name received.  The subscription is renewed on every reconnect.
func (p *Publisher) HandleModeCommands(setMode func(scheduler.Mode)) error {
	if p == nil {
		return nil
	}
	p.lock.Lock()
	p.setMode = setMode
	p.lock.Unlock()
	if !p.client.IsConnectionOpen() {
		return nil
	}
	return p.subscribe()
}

func (p *Publisher) onConnect() {
	if err := p.subscribe(); err != nil {
		p.log.Warnw("failed to subscribe to mode commands", "error", err)
	}
}

func (p *Publisher) subscribe() error {
	p.lock.Lock()
	setMode := p.setMode
	p.lock.Unlock()
	if setMode == nil {
		return nil
	}
	topic := p.topic + "/mode"
	token := p.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		m, err := scheduler.ParseMode(string(msg.Payload()))
		if err != nil {
			p.log.Warnw("ignoring mode command", "payload", string(msg.Payload()), "error", err)
			return
		}
		p.log.Infow("mode command received", "mode", m)
		setMode(m)
	})
	if !token.WaitTimeout(time.Second) {
		return errors.Errorf("timed out subscribing to %s", topic)
	}
	return errors.Wrapf(token.Error(), "subscribing to %s", topic)
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.client.Disconnect(250)
}
