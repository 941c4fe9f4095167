package hass

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/minaret-home/minaret/internal/model"
)

// DefaultPrefix is the entity namespace used when none is configured.
const DefaultPrefix = "minaret"

// Sink receives a fresh snapshot on every entity push.
type Sink interface {
	Apply(snap *model.Snapshot)
}

// CommandHandler receives service commands published on the command topics.
type CommandHandler interface {
	HandlePlay(ev model.Event)
	HandleStop()
	HandleRefresh()
}

// Client is the MQTT bridge: it consumes entity state documents under
// <prefix>/<key>/state, rebuilds a snapshot on every change and pushes it to
// every registered sink, and publishes outbound commands fire-and-forget.
type Client struct {
	mqtt   mqtt.Client
	prefix string
	clock  func() time.Time

	mu       sync.Mutex
	entities entityTable
	sinks    []Sink
	handler  CommandHandler
}

// entity keys the client subscribes to: the six events plus the aggregates.
func entityKeys() []string {
	keys := make([]string, 0, model.EventCount+3)
	for _, ev := range model.Events() {
		keys = append(keys, ev.Key())
	}
	return append(keys, KeyNext, KeyStatus, KeyNight)
}

// NewClient connects to the broker and subscribes to the entity namespace.
// An empty prefix selects DefaultPrefix.
func NewClient(brokerURL, clientID, prefix string) (*Client, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	c := &Client{
		prefix:   prefix,
		clock:    time.Now,
		entities: make(entityTable),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Error().Err(err).Msg("MQTT connection lost")
	}

	c.mqtt = mqtt.NewClient(opts)
	if token := c.mqtt.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	for _, key := range entityKeys() {
		topic := c.stateTopic(key)
		k := key
		if token := c.mqtt.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			c.onState(k, msg.Payload())
		}); token.Wait() && token.Error() != nil {
			c.mqtt.Disconnect(250)
			return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
		}
	}

	if token := c.mqtt.Subscribe(c.commandTopic("+"), 1, c.onCommand); token.Wait() && token.Error() != nil {
		c.mqtt.Disconnect(250)
		return nil, fmt.Errorf("failed to subscribe to command topic: %w", token.Error())
	}

	return c, nil
}

// AddSink registers a snapshot consumer. Sinks added after states arrived
// receive the current snapshot immediately.
func (c *Client) AddSink(s Sink) {
	c.mu.Lock()
	c.sinks = append(c.sinks, s)
	var snap *model.Snapshot
	if len(c.entities) > 0 {
		snap = c.entities.snapshot(c.clock())
	}
	c.mu.Unlock()

	if snap != nil {
		s.Apply(snap)
	}
}

// SetCommandHandler routes inbound command topics. Only one handler is
// supported; later calls replace the previous one.
func (c *Client) SetCommandHandler(h CommandHandler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.mqtt.Disconnect(250)
}

func (c *Client) stateTopic(key string) string {
	return fmt.Sprintf("%s/%s/state", c.prefix, key)
}

func (c *Client) commandTopic(name string) string {
	return fmt.Sprintf("%s/command/%s", c.prefix, name)
}

func (c *Client) mediaTopic(name string) string {
	return fmt.Sprintf("%s/media/%s", c.prefix, name)
}

// onState stores the entity document and pushes a fresh snapshot to every
// sink. A malformed payload only logs; the previous entity value stands.
func (c *Client) onState(key string, payload []byte) {
	var es EntityState
	if err := json.Unmarshal(payload, &es); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("discarding malformed entity state")
		return
	}

	c.mu.Lock()
	c.entities[key] = &es
	snap := c.entities.snapshot(c.clock())
	sinks := make([]Sink, len(c.sinks))
	copy(sinks, c.sinks)
	c.mu.Unlock()

	for _, s := range sinks {
		s.Apply(snap)
	}
}

func (c *Client) onCommand(_ mqtt.Client, msg mqtt.Message) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler == nil {
		return
	}

	var body struct {
		Prayer string `json:"prayer"`
	}
	_ = json.Unmarshal(msg.Payload(), &body)

	switch msg.Topic() {
	case c.commandTopic("play"):
		ev, ok := model.ParseEvent(body.Prayer)
		if !ok {
			log.Warn().Str("prayer", body.Prayer).Msg("play command for unknown prayer")
			return
		}
		handler.HandlePlay(ev)
	case c.commandTopic("stop"):
		handler.HandleStop()
	case c.commandTopic("refresh"):
		handler.HandleRefresh()
	}
}

// PublishState publishes a retained entity document under the namespace.
// Failures are logged, not returned: state publication is fire-and-forget.
func (c *Client) PublishState(key string, es EntityState) {
	payload, err := json.Marshal(es)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to marshal entity state")
		return
	}
	token := c.mqtt.Publish(c.stateTopic(key), 1, true, payload)
	token.Wait()
	if token.Error() != nil {
		log.Error().Err(token.Error()).Str("key", key).Msg("failed to publish entity state")
	}
}

func (c *Client) publishCommand(name string, payload any) {
	c.publishJSON(c.commandTopic(name), payload)
}

func (c *Client) publishJSON(topic string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("failed to marshal payload")
		return
	}
	token := c.mqtt.Publish(topic, 1, false, body)
	token.Wait()
	if token.Error() != nil {
		log.Error().Err(token.Error()).Str("topic", topic).Msg("failed to publish")
	}
}

// PlayMedia asks the attached media player to stream url.
func (c *Client) PlayMedia(url string) {
	c.publishJSON(c.mediaTopic("play"), map[string]string{"url": url})
}

// StopMedia cuts whatever the media player is streaming.
func (c *Client) StopMedia() {
	c.publishJSON(c.mediaTopic("stop"), struct{}{})
}

// PlayAzan requests immediate playback for ev. One-shot, no acknowledgment.
func (c *Client) PlayAzan(ev model.Event) {
	c.publishCommand("play", map[string]string{"prayer": ev.String()})
}

// StopAzan requests playback stop.
func (c *Client) StopAzan() {
	c.publishCommand("stop", struct{}{})
}

// RefreshTimes requests a refresh of the upstream schedule data.
func (c *Client) RefreshTimes() {
	c.publishCommand("refresh", struct{}{})
}
