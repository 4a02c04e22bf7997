package sensor

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

// fixState holds the latest GPS fix, shared by both backends below. All
// access goes through the embedding reader's mutex.
type fixState struct {
	lat, lon  float64
	accuracy  float64
	quality   FixQuality
	lastFix   time.Time
	connected bool
}

// GPSDReader reads position fixes from a gpsd TCP JSON stream
// (`?WATCH={"enable":true,"json":true}`), connecting lazily and
// reconnecting on the next call after a disconnect.
type GPSDReader struct {
	addr   string
	logger *zap.Logger

	mu        sync.Mutex
	state     fixState
	conn      net.Conn
	loggedErr bool
}

// NewGPSDReader creates a reader targeting a gpsd instance at addr
// (host:port, e.g. "127.0.0.1:2947"). It does not connect until first use.
func NewGPSDReader(addr string, logger *zap.Logger) *GPSDReader {
	return &GPSDReader{addr: addr, logger: logger, state: fixState{quality: FixNoFix}}
}

func (g *GPSDReader) Position(ctx context.Context) (lat, lon float64, ok bool) {
	g.ensureConnected(ctx)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.lastFix.IsZero() {
		return 0, 0, false
	}
	return g.state.lat, g.state.lon, true
}

func (g *GPSDReader) Accuracy(ctx context.Context) (meters float64, ok bool) {
	g.ensureConnected(ctx)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.lastFix.IsZero() {
		return 0, false
	}
	return g.state.accuracy, true
}

func (g *GPSDReader) FixQuality(ctx context.Context) FixQuality {
	g.ensureConnected(ctx)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.quality
}

func (g *GPSDReader) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn != nil {
		err := g.conn.Close()
		g.conn = nil
		g.state.connected = false
		return err
	}
	return nil
}

// ensureConnected dials gpsd if not already connected, logging the first
// failure only, and starts a background reader goroutine on success.
func (g *GPSDReader) ensureConnected(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.connected {
		return
	}

	dialCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", g.addr)
	if err != nil {
		if !g.loggedErr && g.logger != nil {
			g.logger.Warn("gps: gpsd connect failed", zap.String("addr", g.addr), zap.Error(err))
			g.loggedErr = true
		}
		return
	}
	if _, err := conn.Write([]byte("?WATCH={\"enable\":true,\"json\":true}\n")); err != nil {
		conn.Close()
		return
	}

	g.conn = conn
	g.state.connected = true
	g.loggedErr = false
	go g.readLoop(conn)
}

type gpsdTPV struct {
	Class string       `json:"class"`
	Mode  *json.Number `json:"mode"`
	Lat   *float64     `json:"lat"`
	Lon   *float64     `json:"lon"`
	Epx   *float64     `json:"epx"`
	Epy   *float64     `json:"epy"`
}

func (g *GPSDReader) readLoop(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 256*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var tpv gpsdTPV
		if err := json.Unmarshal([]byte(line), &tpv); err != nil || tpv.Class != "TPV" {
			continue
		}
		if tpv.Mode == nil || tpv.Lat == nil || tpv.Lon == nil {
			continue
		}
		mode, err := tpv.Mode.Int64()
		if err != nil {
			continue
		}

		g.mu.Lock()
		g.state.lat = *tpv.Lat
		g.state.lon = *tpv.Lon
		g.state.lastFix = time.Now()
		g.state.quality = gpsdModeToQuality(mode)
		if tpv.Epx != nil && tpv.Epy != nil {
			g.state.accuracy = (*tpv.Epx + *tpv.Epy) / 2
		}
		g.mu.Unlock()
	}

	g.mu.Lock()
	g.state.connected = false
	g.conn = nil
	g.mu.Unlock()
}

func gpsdModeToQuality(mode int64) FixQuality {
	switch mode {
	case 2:
		return Fix2D
	case 3:
		return Fix3D
	case 0, 1:
		return FixNoFix
	default:
		return FixUnknown
	}
}

// SerialGPSReader reads NMEA sentences (RMC/GGA/GLL/GNS) from a raw serial
// GPS module, connecting lazily and reconnecting on the next call after a
// disconnect.
type SerialGPSReader struct {
	dev    string
	baud   int
	logger *zap.Logger

	mu        sync.Mutex
	state     fixState
	port      serial.Port
	loggedErr bool
}

// NewSerialGPSReader creates a reader against dev (e.g. "/dev/ttyUSB0") at
// baud (e.g. 9600). It does not open the port until first use.
func NewSerialGPSReader(dev string, baud int, logger *zap.Logger) *SerialGPSReader {
	if baud <= 0 {
		baud = 9600
	}
	return &SerialGPSReader{dev: dev, baud: baud, logger: logger, state: fixState{quality: FixNoFix}}
}

func (s *SerialGPSReader) Position(ctx context.Context) (lat, lon float64, ok bool) {
	s.ensureConnected()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.lastFix.IsZero() {
		return 0, 0, false
	}
	return s.state.lat, s.state.lon, true
}

func (s *SerialGPSReader) Accuracy(ctx context.Context) (meters float64, ok bool) {
	s.ensureConnected()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.lastFix.IsZero() {
		return 0, false
	}
	return s.state.accuracy, true
}

func (s *SerialGPSReader) FixQuality(ctx context.Context) FixQuality {
	s.ensureConnected()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.quality
}

func (s *SerialGPSReader) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		err := s.port.Close()
		s.port = nil
		s.state.connected = false
		return err
	}
	return nil
}

func (s *SerialGPSReader) ensureConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.connected {
		return
	}

	port, err := serial.Open(s.dev, &serial.Mode{BaudRate: s.baud})
	if err != nil {
		if !s.loggedErr && s.logger != nil {
			s.logger.Warn("gps: serial open failed", zap.String("device", s.dev), zap.Error(err))
			s.loggedErr = true
		}
		return
	}

	s.port = port
	s.state.connected = true
	s.loggedErr = false
	go s.readLoop(port)
}

func (s *SerialGPSReader) readLoop(port serial.Port) {
	scanner := bufio.NewScanner(port)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 256*1024)

	for scanner.Scan() {
		line := strings.TrimRight(strings.TrimSpace(scanner.Text()), "\r")
		if line == "" || (!strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "!")) {
			continue
		}
		sent, err := nmea.Parse(line)
		if err != nil {
			continue
		}

		var lat, lon float64
		var have bool
		var quality FixQuality

		switch v := sent.(type) {
		case nmea.RMC:
			if strings.EqualFold(v.Validity, "A") {
				lat, lon, have, quality = v.Latitude, v.Longitude, true, Fix2D
			}
		case nmea.GGA:
			if v.FixQuality != "0" && (v.Latitude != 0 || v.Longitude != 0) {
				lat, lon, have = v.Latitude, v.Longitude, true
				quality = gpsFixQualityFromGGA(v.FixQuality)
			}
		case nmea.GLL:
			if strings.EqualFold(v.Validity, "A") {
				lat, lon, have, quality = v.Latitude, v.Longitude, true, Fix2D
			}
		case nmea.GNS:
			if v.Latitude != 0 || v.Longitude != 0 {
				lat, lon, have, quality = v.Latitude, v.Longitude, true, Fix3D
			}
		}
		if !have {
			continue
		}

		s.mu.Lock()
		s.state.lat = lat
		s.state.lon = lon
		s.state.lastFix = time.Now()
		s.state.quality = quality
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.state.connected = false
	s.port = nil
	s.mu.Unlock()
}

func gpsFixQualityFromGGA(code string) FixQuality {
	switch code {
	case "1":
		return Fix3D
	case "2":
		return FixDGPS
	case "0":
		return FixNoFix
	default:
		return FixUnknown
	}
}
