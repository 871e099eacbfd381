package capabilities

import (
	"fmt"
	"sort"
	"strings"

	"github.com/entrhq/sessionrig/pkg/config"
)

// Platform is the device class a target runs on.
type Platform string

const (
	PlatformDesktop      Platform = "desktop"
	PlatformMobileDevice Platform = "mobile-device"
)

// Engine is the browser engine family driven for a target.
type Engine string

const (
	EngineChromium Engine = "chromium"
	EngineWebKit   Engine = "webkit"
	EngineFirefox  Engine = "firefox"
)

// Device identifies a cloud-hosted mobile device.
type Device struct {
	Name      string
	OSVersion string
	// OS is the lower-case platform name used in device endpoints ("android", "ios")
	OS string
}

// Target is the resolved execution target for one session.
type Target struct {
	Name     string
	Platform Platform
	Engine   Engine
	Remote   bool

	// Device is set only for remote mobile device targets
	Device *Device

	// EmulateMobile requests a mobile-sized context on a desktop engine
	EmulateMobile bool
}

// IsMobileDevice reports whether the target is a cloud-hosted mobile device.
func (t Target) IsMobileDevice() bool {
	return t.Platform == PlatformMobileDevice
}

// Mobile reports whether the browsing context should use mobile metrics.
func (t Target) Mobile() bool {
	return t.IsMobileDevice() || t.EmulateMobile
}

func (t Target) String() string {
	if t.Device != nil {
		return fmt.Sprintf("%s (%s %s, %s)", t.Name, t.Device.Name, t.Device.OSVersion, t.Engine)
	}
	if t.Remote {
		return fmt.Sprintf("%s (remote %s)", t.Name, t.Engine)
	}
	return fmt.Sprintf("%s (local %s)", t.Name, t.Engine)
}

// remoteProfile is the per-target layer of a remote descriptor.
type remoteProfile struct {
	platform Platform
	engine   Engine
	fields   map[string]interface{}
	device   *Device
}

// remoteTargets mirrors the environments offered by the cloud provider.
var remoteTargets = map[string]remoteProfile{
	"win_chrome": {
		platform: PlatformDesktop,
		engine:   EngineChromium,
		fields: map[string]interface{}{
			"browser":         "chrome",
			"browser_version": "latest",
			"os":              "Windows",
			"os_version":      "11",
		},
	},
	"win_edge": {
		platform: PlatformDesktop,
		engine:   EngineChromium,
		fields: map[string]interface{}{
			"browser":         "edge",
			"browser_version": "latest",
			"os":              "Windows",
			"os_version":      "11",
		},
	},
	"win_firefox": {
		platform: PlatformDesktop,
		engine:   EngineFirefox,
		fields: map[string]interface{}{
			"browser":         "playwright-firefox",
			"browser_version": "latest",
			"os":              "Windows",
			"os_version":      "11",
		},
	},
	"mac_safari": {
		platform: PlatformDesktop,
		engine:   EngineWebKit,
		fields: map[string]interface{}{
			"browser":         "playwright-webkit",
			"browser_version": "latest",
			"os":              "OS X",
			"os_version":      "Sequoia",
		},
	},
	"mac_chrome": {
		platform: PlatformDesktop,
		engine:   EngineChromium,
		fields: map[string]interface{}{
			"browser":         "chrome",
			"browser_version": "latest",
			"os":              "OS X",
			"os_version":      "Sequoia",
		},
	},
	"ios_safari": {
		platform: PlatformMobileDevice,
		fields: map[string]interface{}{
			"browser":         "safari",
			"browser_version": "latest",
		},
		device: &Device{Name: "iPhone 14", OSVersion: "16", OS: "ios"},
	},
	"android_chrome": {
		platform: PlatformMobileDevice,
		fields: map[string]interface{}{
			"browser":         "chrome",
			"browser_version": "latest",
		},
		device: &Device{Name: "Samsung Galaxy S22", OSVersion: "12.0", OS: "android"},
	},
}

// localTargets maps local names to the engine launched for them.
var localTargets = map[string]Target{
	"chrome":        {Name: "chrome", Platform: PlatformDesktop, Engine: EngineChromium},
	"chromium":      {Name: "chromium", Platform: PlatformDesktop, Engine: EngineChromium},
	"firefox":       {Name: "firefox", Platform: PlatformDesktop, Engine: EngineFirefox},
	"webkit":        {Name: "webkit", Platform: PlatformDesktop, Engine: EngineWebKit},
	"safari":        {Name: "safari", Platform: PlatformDesktop, Engine: EngineWebKit},
	"mobile_chrome": {Name: "mobile_chrome", Platform: PlatformDesktop, Engine: EngineChromium, EmulateMobile: true},
}

// platformEngine is the engine forced for device targets, regardless of browser.
func platformEngine(os string) Engine {
	if os == "ios" {
		return EngineWebKit
	}
	return EngineChromium
}

// Names returns the supported target names for a mode, sorted.
func Names(mode config.Mode) []string {
	var names []string
	if mode.IsRemote() {
		for name := range remoteTargets {
			names = append(names, name)
		}
	} else {
		for name := range localTargets {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Resolve derives the Target for a name without building a descriptor.
func Resolve(name string, mode config.Mode) (Target, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	if !mode.IsRemote() {
		t, ok := localTargets[key]
		if !ok {
			return Target{}, &UnsupportedTargetError{Name: name, Mode: mode, Known: Names(mode)}
		}
		return t, nil
	}

	profile, ok := remoteTargets[key]
	if !ok {
		return Target{}, &UnsupportedTargetError{Name: name, Mode: mode, Known: Names(mode)}
	}

	t := Target{Name: key, Platform: profile.platform, Engine: profile.engine, Remote: true}
	if profile.device != nil {
		d := *profile.device
		t.Device = &d
		t.Engine = platformEngine(d.OS)
	}
	return t, nil
}
