/* SlaveDriver.go: binding and opening the kernel ipmb-dev I2C slave device
 *
 * This software is open source software available under the BSD-3 license.
 * Copyright (c) 2018-2021, Triad National Security, LLC
 * See LICENSE file for details.
 */

package core

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Defaults for SysfsSlaveDriver
const (
	DefaultSysfsRoot = "/sys/bus/i2c/devices"
	DefaultDevRoot   = "/dev"
)

// A Device is an open I2C slave device. Each Read returns one whole frame,
// each Write sends one.
type Device io.ReadWriteCloser

// A SlaveDriver opens slave devices and moves them between slave addresses
type SlaveDriver interface {
	// Open opens the device at path for the bus, binding the driver at addr if needed
	Open(bus uint8, path string, addr uint8) (Device, error)
	// Rebind moves the bus's slave driver from oldAddr to newAddr and opens the new device.
	// The caller must close any device it holds first.
	Rebind(bus uint8, oldAddr, newAddr uint8) (Device, error)
}

var _ SlaveDriver = (*SysfsSlaveDriver)(nil)

// SysfsSlaveDriver drives the ipmb-dev kernel driver through sysfs
type SysfsSlaveDriver struct {
	SysfsRoot string
	DevRoot   string
}

// NewSysfsSlaveDriver creates a SysfsSlaveDriver; empty roots take the defaults
func NewSysfsSlaveDriver(sysfsRoot, devRoot string) *SysfsSlaveDriver {
	if sysfsRoot == "" {
		sysfsRoot = DefaultSysfsRoot
	}
	if devRoot == "" {
		devRoot = DefaultDevRoot
	}
	return &SysfsSlaveDriver{
		SysfsRoot: sysfsRoot,
		DevRoot:   devRoot,
	}
}

// SlaveBinding is the i2c client address used by the ipmb-dev driver for an
// 8-bit slave address: the slave flag 0x1000 plus the 7-bit address
func SlaveBinding(addr uint8) uint16 {
	return 0x1000 + uint16(addr>>1)
}

// Open implements SlaveDriver
func (d *SysfsSlaveDriver) Open(bus uint8, path string, addr uint8) (Device, error) {
	if _, e := os.Stat(path); os.IsNotExist(e) {
		if e = d.write(bus, "new_device", fmt.Sprintf("ipmb-dev 0x%x", SlaveBinding(addr))); e != nil {
			return nil, e
		}
	}
	return openDevice(path)
}

// Rebind implements SlaveDriver
func (d *SysfsSlaveDriver) Rebind(bus uint8, oldAddr, newAddr uint8) (Device, error) {
	if e := d.write(bus, "delete_device", fmt.Sprintf("0x%x", SlaveBinding(oldAddr))); e != nil {
		return nil, e
	}
	if e := d.write(bus, "new_device", fmt.Sprintf("ipmb-dev 0x%x", SlaveBinding(newAddr))); e != nil {
		return nil, e
	}
	return openDevice(d.DevicePath(bus))
}

// DevicePath is the devnode the driver creates for a bus
func (d *SysfsSlaveDriver) DevicePath(bus uint8) string {
	return filepath.Join(d.DevRoot, fmt.Sprintf("ipmb-%d", bus))
}

func (d *SysfsSlaveDriver) write(bus uint8, attr, value string) error {
	p := filepath.Join(d.SysfsRoot, fmt.Sprintf("i2c-%d", bus), attr)
	if e := ioutil.WriteFile(p, []byte(value), 0200); e != nil {
		return fmt.Errorf("failed to write %s: %w", p, e)
	}
	return nil
}

// openDevice opens non-blocking so the runtime poller owns the descriptor;
// Close then interrupts a pending Read.
func openDevice(path string) (Device, error) {
	fd, e := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if e != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: e}
	}
	return os.NewFile(uintptr(fd), path), nil
}
