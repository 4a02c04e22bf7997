package sensor

import (
	"context"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	iioDest  = "net.hadess.SensorProxy"
	iioPath  = "/net/hadess/SensorProxy"
	iioIface = "net.hadess.SensorProxy"
)

// DBusOrientationReader reads compass heading from the iio-sensor-proxy
// DBus service over the system bus, connecting lazily and reconnecting on
// the next call after a failure.
type DBusOrientationReader struct {
	logger  *zap.Logger
	timeout time.Duration

	mu        sync.Mutex
	conn      *dbus.Conn
	loggedErr bool
}

// NewDBusOrientationReader creates a reader against the system bus's
// iio-sensor-proxy service. It does not connect until first use.
func NewDBusOrientationReader(logger *zap.Logger) *DBusOrientationReader {
	return &DBusOrientationReader{logger: logger, timeout: DefaultTimeout}
}

func (d *DBusOrientationReader) Heading(ctx context.Context) (degrees float64, ok bool) {
	return withTimeout(ctx, d.timeout, func(ctx context.Context) (float64, bool) {
		conn := d.ensureConnected()
		if conn == nil {
			return 0, false
		}

		obj := conn.Object(iioDest, dbus.ObjectPath(iioPath))
		var compass dbus.Variant
		if err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, iioIface, "CompassHeading").Store(&compass); err != nil {
			d.invalidate()
			return 0, false
		}
		heading, ok := compass.Value().(float64)
		if !ok || heading < 0 {
			return 0, false
		}
		return heading, true
	})
}

func (d *DBusOrientationReader) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		err := d.conn.Close()
		d.conn = nil
		return err
	}
	return nil
}

func (d *DBusOrientationReader) ensureConnected() *dbus.Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		return d.conn
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		if !d.loggedErr && d.logger != nil {
			d.logger.Warn("orientation: system bus connect failed", zap.Error(err))
			d.loggedErr = true
		}
		return nil
	}
	d.conn = conn
	d.loggedErr = false
	return conn
}

func (d *DBusOrientationReader) invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}
