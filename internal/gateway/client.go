package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	defaultPort           = 80
	defaultRequestTimeout = 5 * time.Second
)

// Logger is the minimal logging surface the client needs. A nil Logger
// silently discards everything.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// UpdateListener is invoked with a device's unique id after a push-mode poll
// refreshes that device. Listeners run on the polling goroutine and must not
// block.
type UpdateListener func(deviceID string)

// Config holds the connection parameters for a gateway client.
type Config struct {
	// Host is the gateway's IP address or hostname on the LAN.
	Host string

	// Port defaults to 80.
	Port int

	// EUID is the 16 hex digit identifier printed on the gateway,
	// case-insensitive.
	EUID string

	// RequestTimeout bounds each wire request. Defaults to 5s.
	RequestTimeout time.Duration

	// HTTPClient is optional. When nil the client creates and owns one,
	// and Close releases it.
	HTTPClient *http.Client

	// Logger is optional.
	Logger Logger

	// Debug logs full request and response JSON at debug level.
	Debug bool
}

// Client speaks the encrypted local protocol of a Salus iT600 gateway and
// maintains the decoded device state between polls.
//
// All methods are safe for concurrent use.
type Client struct {
	host      string
	port      int
	timeout   time.Duration
	encryptor *Encryptor
	logger    Logger
	debug     bool

	httpClient *http.Client
	ownsClient bool

	// The gateway firmware mishandles concurrent requests, so every wire
	// exchange holds requestMu for its full duration.
	requestMu sync.Mutex

	stateMu            sync.RWMutex
	gatewayDevice      *GatewayDevice
	climateDevices     map[string]ClimateDevice
	binarySensors      map[string]BinarySensorDevice
	errorBinarySensors map[string]BinarySensorDevice
	switchDevices      map[string]SwitchDevice
	coverDevices       map[string]CoverDevice
	sensorDevices      map[string]SensorDevice
	batterySensors     map[string]SensorDevice
	humiditySensors    map[string]SensorDevice
	energySensors      map[string]SensorDevice

	listenerMu            sync.RWMutex
	climateListeners      []UpdateListener
	binarySensorListeners []UpdateListener
	switchListeners       []UpdateListener
	coverListeners        []UpdateListener
	sensorListeners       []UpdateListener
}

// New creates a gateway client. It performs no network traffic; call Connect
// to verify the gateway is reachable and the EUID matches.
func New(cfg Config) *Client {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}

	httpClient := cfg.HTTPClient
	owns := false
	if httpClient == nil {
		httpClient = &http.Client{}
		owns = true
	}

	return &Client{
		host:               cfg.Host,
		port:               port,
		timeout:            timeout,
		encryptor:          NewEncryptor(cfg.EUID),
		logger:             cfg.Logger,
		debug:              cfg.Debug,
		httpClient:         httpClient,
		ownsClient:         owns,
		climateDevices:     map[string]ClimateDevice{},
		binarySensors:      map[string]BinarySensorDevice{},
		errorBinarySensors: map[string]BinarySensorDevice{},
		switchDevices:      map[string]SwitchDevice{},
		coverDevices:       map[string]CoverDevice{},
		sensorDevices:      map[string]SensorDevice{},
		batterySensors:     map[string]SensorDevice{},
		humiditySensors:    map[string]SensorDevice{},
		energySensors:      map[string]SensorDevice{},
	}
}

// Close releases the HTTP client if this Client created it. Clients built
// around a caller supplied http.Client leave it untouched.
func (c *Client) Close() {
	if c.ownsClient {
		c.httpClient.CloseIdleConnections()
	}
}

// Connect performs an initial bulk read and returns the gateway's LAN MAC
// address. When the encrypted exchange fails it probes the host with a plain
// GET to tell an unreachable gateway (ErrGatewayUnreachable) apart from a
// wrong EUID (ErrAuthenticationFailed).
func (c *Client) Connect(ctx context.Context) (string, error) {
	c.logDebug("connecting to gateway", "host", c.host, "port", c.port)

	resp, err := c.makeEncryptedRequest(ctx, "read", map[string]any{"requestAttr": "readall"})
	if err != nil {
		if errors.Is(err, ErrGatewayUnreachable) || errors.Is(err, ErrDecode) {
			if probeErr := c.probe(ctx); probeErr != nil {
				return "", fmt.Errorf("%w: no response from %s:%d", ErrGatewayUnreachable, c.host, c.port)
			}
			return "", fmt.Errorf("%w: gateway at %s responded but the encrypted exchange failed", ErrAuthenticationFailed, c.host)
		}
		return "", err
	}

	for _, row := range deviceRows(resp) {
		if mac, ok := rawString(nested(row, blockGateway), "NetworkLANMAC"); ok && mac != "" {
			return mac, nil
		}
	}

	return "", fmt.Errorf("%w: response did not contain gateway information", ErrCommandFailed)
}

// probe issues an unencrypted GET against the gateway root to test plain
// reachability.
func (c *Client) probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("http://%s:%d/", c.host, c.port)
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	return nil
}

// PollStatus fetches the bulk device listing and refreshes every device
// category. A failure in one category is logged and does not stop the
// others; only a failure of the bulk read itself is returned.
//
// With notify set, registered listeners are invoked for each refreshed
// device id.
func (c *Client) PollStatus(ctx context.Context, notify bool) error {
	resp, err := c.makeEncryptedRequest(ctx, "read", map[string]any{"requestAttr": "readall"})
	if err != nil {
		return err
	}

	all := deviceRows(resp)

	for _, category := range []struct {
		name    string
		match   func(map[string]any) bool
		refresh func(context.Context, []map[string]any, bool) error
	}{
		{"gateway", matchGatewayRow, c.refreshGatewayDevice},
		{"climate", matchClimateRow, c.refreshClimateDevices},
		{"binary sensor", matchBinarySensorRow, c.refreshBinarySensorDevices},
		{"sensor", matchSensorRow, c.refreshSensorDevices},
		{"switch", matchSwitchRow, c.refreshSwitchDevices},
		{"cover", matchCoverRow, c.refreshCoverDevices},
	} {
		if err := category.refresh(ctx, filterRows(all, category.match), notify); err != nil {
			c.logError("failed to refresh devices", "category", category.name, "error", err)
		}
	}

	return nil
}

func matchGatewayRow(row map[string]any) bool {
	_, ok := row[blockGateway]
	return ok
}

func matchClimateRow(row map[string]any) bool {
	_, th := row[blockIT600TH]
	_, ther := row[blockTher]
	return th || ther
}

func matchBinarySensorRow(row map[string]any) bool {
	if _, ok := row[blockIASZone]; ok {
		return true
	}
	model, _ := rawString(nested(row, blockBasic), "ModelIdentifier")
	return relayBinarySensorModels[model]
}

func matchSensorRow(row map[string]any) bool {
	_, ok := row[blockTemp]
	return ok
}

func matchSwitchRow(row map[string]any) bool {
	_, ok := row[blockOnOff]
	return ok
}

func matchCoverRow(row map[string]any) bool {
	_, ok := row[blockLevel]
	return ok
}

func filterRows(rows []map[string]any, match func(map[string]any) bool) []map[string]any {
	var out []map[string]any
	for _, row := range rows {
		if match(row) {
			out = append(out, row)
		}
	}
	return out
}

// deviceRows extracts the per-device rows from a decoded response envelope.
func deviceRows(resp map[string]any) []map[string]any {
	raw, _ := resp["id"].([]any)

	rows := make([]map[string]any, 0, len(raw))
	for _, entry := range raw {
		if row, ok := entry.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// readDetails issues a detail read for the given bulk rows and returns the
// detailed rows. Rows without an addressing block are dropped. An empty
// input returns nil without touching the network.
func (c *Client) readDetails(ctx context.Context, rows []map[string]any) ([]map[string]any, error) {
	ids := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if data, ok := rowData(row); ok {
			ids = append(ids, map[string]any{"data": data})
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	resp, err := c.makeEncryptedRequest(ctx, "read", map[string]any{
		"requestAttr": "deviceid",
		"id":          ids,
	})
	if err != nil {
		return nil, err
	}

	return deviceRows(resp), nil
}

// writeAttributes sends a write request carrying the device's addressing
// block plus the given cluster payload.
func (c *Client) writeAttributes(ctx context.Context, data map[string]any, cluster string, attrs map[string]any) error {
	_, err := c.makeEncryptedRequest(ctx, "write", map[string]any{
		"requestAttr": "write",
		"id": []map[string]any{
			{"data": data, cluster: attrs},
		},
	})
	return err
}

// makeEncryptedRequest serializes the body, encrypts it, POSTs it to the
// command endpoint and decrypts the reply. Responses whose status field is
// not "success" fail with ErrCommandFailed.
func (c *Client) makeEncryptedRequest(ctx context.Context, command string, body map[string]any) (map[string]any, error) {
	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request body: %v", ErrCommandFailed, err)
	}

	url := fmt.Sprintf("http://%s:%d/deviceid/%s", c.host, c.port, command)
	if c.debug {
		c.logDebug("gateway request", "url", url, "body", string(payload))
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(c.encryptor.Encrypt(string(payload))))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrCommandFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrGatewayUnreachable, err)
	}

	plaintext, err := c.encryptor.Decrypt(raw)
	if err != nil {
		return nil, err
	}

	if c.debug {
		c.logDebug("gateway response", "body", plaintext)
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(plaintext), &result); err != nil {
		return nil, fmt.Errorf("%w: response is not valid JSON: %v", ErrCommandFailed, err)
	}

	if status, _ := result["status"].(string); status != "success" {
		return nil, fmt.Errorf("%w: %q request: %s", ErrCommandFailed, command, payload)
	}

	return result, nil
}

// --- listeners ---

// AddClimateUpdateListener registers a listener for push-mode climate
// updates. Listeners cannot be removed.
func (c *Client) AddClimateUpdateListener(fn UpdateListener) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.climateListeners = append(c.climateListeners, fn)
}

// AddBinarySensorUpdateListener registers a listener for push-mode binary
// sensor updates.
func (c *Client) AddBinarySensorUpdateListener(fn UpdateListener) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.binarySensorListeners = append(c.binarySensorListeners, fn)
}

// AddSwitchUpdateListener registers a listener for push-mode switch updates.
func (c *Client) AddSwitchUpdateListener(fn UpdateListener) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.switchListeners = append(c.switchListeners, fn)
}

// AddCoverUpdateListener registers a listener for push-mode cover updates.
func (c *Client) AddCoverUpdateListener(fn UpdateListener) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.coverListeners = append(c.coverListeners, fn)
}

// AddSensorUpdateListener registers a listener for push-mode sensor updates.
func (c *Client) AddSensorUpdateListener(fn UpdateListener) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.sensorListeners = append(c.sensorListeners, fn)
}

// notifyListeners invokes a snapshot of the given listener slice for each id.
func (c *Client) notifyListeners(listeners *[]UpdateListener, ids map[string]struct{}) {
	c.listenerMu.RLock()
	snapshot := make([]UpdateListener, len(*listeners))
	copy(snapshot, *listeners)
	c.listenerMu.RUnlock()

	for id := range ids {
		for _, fn := range snapshot {
			fn(id)
		}
	}
}

// --- getters ---

// GetGatewayDevice returns the hub record, or nil before the first
// successful poll.
func (c *Client) GetGatewayDevice() *GatewayDevice {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	if c.gatewayDevice == nil {
		return nil
	}
	device := *c.gatewayDevice
	return &device
}

// GetClimateDevices returns a snapshot of all climate devices keyed by
// unique id.
func (c *Client) GetClimateDevices() map[string]ClimateDevice {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	out := make(map[string]ClimateDevice, len(c.climateDevices))
	for id, device := range c.climateDevices {
		out[id] = device
	}
	return out
}

// GetClimateDevice looks up one climate device.
func (c *Client) GetClimateDevice(deviceID string) (ClimateDevice, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	device, ok := c.climateDevices[deviceID]
	return device, ok
}

// GetBinarySensorDevices returns a snapshot of the binary sensors, including
// the derived thermostat error sensors.
func (c *Client) GetBinarySensorDevices() map[string]BinarySensorDevice {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	out := make(map[string]BinarySensorDevice, len(c.binarySensors)+len(c.errorBinarySensors))
	for id, device := range c.binarySensors {
		out[id] = device
	}
	for id, device := range c.errorBinarySensors {
		out[id] = device
	}
	return out
}

// GetBinarySensorDevice looks up one binary sensor across the regular and
// derived error sensors.
func (c *Client) GetBinarySensorDevice(deviceID string) (BinarySensorDevice, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	if device, ok := c.binarySensors[deviceID]; ok {
		return device, true
	}
	device, ok := c.errorBinarySensors[deviceID]
	return device, ok
}

// GetSwitchDevices returns a snapshot of all switches keyed by unique id.
func (c *Client) GetSwitchDevices() map[string]SwitchDevice {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	out := make(map[string]SwitchDevice, len(c.switchDevices))
	for id, device := range c.switchDevices {
		out[id] = device
	}
	return out
}

// GetSwitchDevice looks up one switch.
func (c *Client) GetSwitchDevice(deviceID string) (SwitchDevice, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	device, ok := c.switchDevices[deviceID]
	return device, ok
}

// GetCoverDevices returns a snapshot of all covers keyed by unique id.
func (c *Client) GetCoverDevices() map[string]CoverDevice {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	out := make(map[string]CoverDevice, len(c.coverDevices))
	for id, device := range c.coverDevices {
		out[id] = device
	}
	return out
}

// GetCoverDevice looks up one cover.
func (c *Client) GetCoverDevice(deviceID string) (CoverDevice, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	device, ok := c.coverDevices[deviceID]
	return device, ok
}

// GetSensorDevices returns a snapshot of all numeric sensors, merging the
// primary readings with the derived battery, humidity and energy readings.
func (c *Client) GetSensorDevices() map[string]SensorDevice {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	out := make(map[string]SensorDevice,
		len(c.sensorDevices)+len(c.batterySensors)+len(c.humiditySensors)+len(c.energySensors))
	for id, device := range c.sensorDevices {
		out[id] = device
	}
	for id, device := range c.batterySensors {
		out[id] = device
	}
	for id, device := range c.humiditySensors {
		out[id] = device
	}
	for id, device := range c.energySensors {
		out[id] = device
	}
	return out
}

// GetSensorDevice looks up one sensor across the primary and derived maps.
func (c *Client) GetSensorDevice(deviceID string) (SensorDevice, bool) {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	for _, m := range []map[string]SensorDevice{
		c.sensorDevices, c.batterySensors, c.humiditySensors, c.energySensors,
	} {
		if device, ok := m[deviceID]; ok {
			return device, true
		}
	}
	return SensorDevice{}, false
}

// --- logging ---

func (c *Client) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func (c *Client) logError(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}

func (c *Client) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}
