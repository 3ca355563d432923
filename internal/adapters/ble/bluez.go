package ble

import (
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/bft-labs/toiopose/internal/ports"
)

const (
	busName      = "org.bluez"
	adapterIface = "org.bluez.Adapter1"
	deviceIface  = "org.bluez.Device1"
	propsIface   = "org.freedesktop.DBus.Properties"
	propsSignal  = "org.freedesktop.DBus.Properties.PropertiesChanged"
)

// ErrBlueZUnavailable is returned when org.bluez is not on the system bus.
var ErrBlueZUnavailable = errors.New("org.bluez not found on system bus, is bluetooth.service running?")

// adapterObjectPath returns "/org/bluez/hci0" for adapter "hci0".
func adapterObjectPath(adapter string) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + adapter)
}

// deviceObjectPath converts a MAC address like "AA:BB:CC:DD:EE:FF" to
// "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF".
func deviceObjectPath(adapter, addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(strings.ToUpper(addr), ":", "_")
	return dbus.ObjectPath(string(adapterObjectPath(adapter)) + "/dev_" + escaped)
}

// macFromPath extracts a MAC address from a BlueZ device object path.
func macFromPath(adapter string, path dbus.ObjectPath) string {
	s := string(path)
	prefix := string(adapterObjectPath(adapter)) + "/dev_"
	if !strings.HasPrefix(s, prefix) {
		return ""
	}
	return strings.ReplaceAll(s[len(prefix):], "_", ":")
}

// disconnectedDevice reports the MAC of the device whose Connected property
// flipped to false in sig.
func disconnectedDevice(adapter string, sig *dbus.Signal) (string, bool) {
	if sig == nil || sig.Name != propsSignal || len(sig.Body) < 2 {
		return "", false
	}
	// Body: [interface_name string, changed_props map[string]Variant, invalidated []string]
	iface, ok := sig.Body[0].(string)
	if !ok || iface != deviceIface {
		return "", false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return "", false
	}
	v, ok := changed["Connected"]
	if !ok {
		return "", false
	}
	connected, ok := v.Value().(bool)
	if !ok || connected {
		return "", false
	}
	mac := macFromPath(adapter, sig.Path)
	return mac, mac != ""
}

// BlueZ wraps a system D-Bus connection for adapter housekeeping that the
// GATT library does not cover: power state and link-loss signals.
type BlueZ struct {
	conn    *dbus.Conn
	adapter string
}

// NewBlueZ connects to the system bus and checks that BlueZ is present.
func NewBlueZ(adapter string) (*BlueZ, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	for _, n := range names {
		if n == busName {
			return &BlueZ{conn: conn, adapter: adapter}, nil
		}
	}
	conn.Close()
	return nil, ErrBlueZUnavailable
}

// Close releases the bus connection.
func (b *BlueZ) Close() {
	b.conn.Close()
}

func (b *BlueZ) getBool(path dbus.ObjectPath, iface, prop string) (bool, error) {
	var v dbus.Variant
	if err := b.conn.Object(busName, path).Call(propsIface+".Get", 0, iface, prop).Store(&v); err != nil {
		return false, err
	}
	val, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("property %s is not bool", prop)
	}
	return val, nil
}

func (b *BlueZ) setProp(path dbus.ObjectPath, iface, prop string, val interface{}) error {
	return b.conn.Object(busName, path).Call(propsIface+".Set", 0, iface, prop, dbus.MakeVariant(val)).Err
}

// EnsurePowered powers the adapter on if it is off.
func (b *BlueZ) EnsurePowered(logger ports.Logger) error {
	path := adapterObjectPath(b.adapter)
	powered, err := b.getBool(path, adapterIface, "Powered")
	if err != nil {
		return fmt.Errorf("read %s power state: %w", b.adapter, err)
	}
	if powered {
		return nil
	}
	logger.Info("powering on bluetooth adapter", ports.String("adapter", b.adapter))
	if err := b.setProp(path, adapterIface, "Powered", true); err != nil {
		return fmt.Errorf("power on %s: %w", b.adapter, err)
	}
	return nil
}

// matchCaller is the part of dbus.BusObject used to manage match rules.
type matchCaller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// busMatch adds or removes a match rule. Failures are logged.
func busMatch(bus matchCaller, method, rule string, logger ports.Logger) error {
	if err := bus.Call(method, 0, rule).Err; err != nil {
		logger.Warn("bluez match rule failed",
			ports.String("method", method),
			ports.String("rule", rule),
			ports.Err(err))
		return err
	}
	return nil
}

// WatchDisconnect calls onLost once when BlueZ reports addr disconnected.
// The returned stop function ends the watch. If the match rule cannot be
// added the watch is a no-op.
func (b *BlueZ) WatchDisconnect(addr string, logger ports.Logger, onLost func()) (stop func()) {
	path := deviceObjectPath(b.adapter, addr)
	rule := "type='signal',interface='" + propsIface + "',member='PropertiesChanged',path='" + string(path) + "'"
	if err := busMatch(b.conn.BusObject(), "org.freedesktop.DBus.AddMatch", rule, logger); err != nil {
		return func() {}
	}

	ch := make(chan *dbus.Signal, 16)
	b.conn.Signal(ch)
	quit := make(chan struct{})
	want := strings.ToUpper(addr)

	go func() {
		for {
			select {
			case <-quit:
				return
			case sig, ok := <-ch:
				if !ok {
					return
				}
				if mac, lost := disconnectedDevice(b.adapter, sig); lost && mac == want {
					onLost()
					return
				}
			}
		}
	}()

	return func() {
		b.conn.RemoveSignal(ch)
		_ = busMatch(b.conn.BusObject(), "org.freedesktop.DBus.RemoveMatch", rule, logger)
		close(quit)
	}
}
