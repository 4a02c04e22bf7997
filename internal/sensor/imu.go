package sensor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"go.uber.org/zap"
)

// MPU-6050 register map (subset used for tilt-compensated heading).
const (
	mpu6050Addr      = 0x68
	regPowerMgmt1    = 0x6B
	regAccelXOutHigh = 0x3B
	i2cSlaveIOCtl    = unix.I2C_SLAVE
)

// IMUReader reads orientation from an MPU-6050 accelerometer/gyro over
// I2C, connecting lazily on first use and reconnecting on the next call
// after a failure. Heading is derived from accelerometer tilt (roll/pitch)
// since the bare MPU-6050 carries no magnetometer; callers wanting a true
// compass bearing should prefer DBusOrientationReader where available.
type IMUReader struct {
	devPath string
	logger  *zap.Logger
	timeout time.Duration

	mu        sync.Mutex
	fd        int
	open      bool
	loggedErr bool
}

// NewIMUReader creates a reader against an I2C bus device (e.g.
// "/dev/i2c-1"). It does not open the bus until first use.
func NewIMUReader(devPath string, logger *zap.Logger) *IMUReader {
	return &IMUReader{devPath: devPath, logger: logger, timeout: DefaultTimeout, fd: -1}
}

func (m *IMUReader) Heading(ctx context.Context) (degrees float64, ok bool) {
	return withTimeout(ctx, m.timeout, func(ctx context.Context) (float64, bool) {
		if !m.ensureOpen() {
			return 0, false
		}

		raw, err := m.readAccel()
		if err != nil {
			m.invalidate()
			return 0, false
		}

		roll := math.Atan2(raw[1], raw[2]) * 180 / math.Pi
		pitch := math.Atan2(-raw[0], math.Sqrt(raw[1]*raw[1]+raw[2]*raw[2])) * 180 / math.Pi
		heading := math.Mod(roll+pitch+360, 360)
		return heading, true
	})
}

func (m *IMUReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		err := unix.Close(m.fd)
		m.open = false
		m.fd = -1
		return err
	}
	return nil
}

func (m *IMUReader) ensureOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		return true
	}

	fd, err := unix.Open(m.devPath, unix.O_RDWR, 0)
	if err != nil {
		if !m.loggedErr && m.logger != nil {
			m.logger.Warn("imu: open failed", zap.String("device", m.devPath), zap.Error(err))
			m.loggedErr = true
		}
		return false
	}
	if err := ioctlSetSlave(fd, mpu6050Addr); err != nil {
		unix.Close(fd)
		if !m.loggedErr && m.logger != nil {
			m.logger.Warn("imu: set slave address failed", zap.Error(err))
			m.loggedErr = true
		}
		return false
	}
	// Wake the device: register 0x6B (PWR_MGMT_1) defaults to sleep mode.
	if _, err := unix.Write(fd, []byte{regPowerMgmt1, 0x00}); err != nil {
		unix.Close(fd)
		return false
	}

	m.fd = fd
	m.open = true
	m.loggedErr = false
	return true
}

func (m *IMUReader) invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		unix.Close(m.fd)
		m.open = false
		m.fd = -1
	}
}

// readAccel reads the 6-byte accelerometer block starting at
// ACCEL_XOUT_H and returns normalized [x, y, z] readings.
func (m *IMUReader) readAccel() ([3]float64, error) {
	m.mu.Lock()
	fd := m.fd
	m.mu.Unlock()

	if _, err := unix.Write(fd, []byte{regAccelXOutHigh}); err != nil {
		return [3]float64{}, err
	}
	buf := make([]byte, 6)
	if _, err := unix.Read(fd, buf); err != nil {
		return [3]float64{}, err
	}

	x := int16(uint16(buf[0])<<8 | uint16(buf[1]))
	y := int16(uint16(buf[2])<<8 | uint16(buf[3]))
	z := int16(uint16(buf[4])<<8 | uint16(buf[5]))
	const sensitivity = 16384.0 // LSB/g at the default +-2g range
	return [3]float64{float64(x) / sensitivity, float64(y) / sensitivity, float64(z) / sensitivity}, nil
}

func ioctlSetSlave(fd int, addr uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(i2cSlaveIOCtl), addr)
	if errno != 0 {
		return fmt.Errorf("ioctl I2C_SLAVE: %w", errno)
	}
	return nil
}
