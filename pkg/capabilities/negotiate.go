package capabilities

import (
	"fmt"
	"time"

	"github.com/entrhq/sessionrig/pkg/config"
)

// Options carries the run-level values folded into a remote descriptor.
type Options struct {
	Project     string
	Build       string
	SessionName string

	// Device overrides, ignored for desktop targets
	DeviceName string
	OSVersion  string

	// Tunnel marks the session as routed through the local tunnel
	Tunnel           bool
	TunnelIdentifier string

	// Extra fields layered over the target profile; diagnostics stay forced on
	Extra map[string]interface{}
}

// OptionsFromConfig derives descriptor options from the loaded configuration.
// runID labels the build and session when the configuration leaves them empty.
func OptionsFromConfig(cfg *config.Config, runID string) Options {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}

	build := cfg.Remote.Build
	if build == "" {
		build = fmt.Sprintf("%s build %s", cfg.Remote.Project, time.Now().UTC().Format("2006-01-02"))
	}

	return Options{
		Project:          cfg.Remote.Project,
		Build:            build,
		SessionName:      fmt.Sprintf("%s run %s", cfg.Remote.Project, short),
		DeviceName:       cfg.Remote.DeviceName,
		OSVersion:        cfg.Remote.OSVersion,
		Tunnel:           cfg.Tunnel.Enabled,
		TunnelIdentifier: cfg.Tunnel.Identifier,
		Extra:            cfg.Remote.Capabilities,
	}
}

// Keys that belong to exactly one device class.
var (
	deviceOnlyKeys  = []string{"device", "realMobile", "browserstack.deviceLogs", "browserstack.appiumLogs"}
	desktopOnlyKeys = []string{"os"}

	deviceOnlyOptions  = []string{"deviceName", "platformName", "realMobile", "source"}
	desktopOnlyOptions = []string{"os"}
)

// forcedDiagnostics are applied last and cannot be overridden.
var forcedDiagnostics = layer{
	"browserstack.debug":          true,
	"browserstack.networkLogs":    true,
	"browserstack.playwrightLogs": true,
	"browserstack.console":        "verbose",
}

// Negotiate resolves a target name and builds its capability descriptor.
// Local targets get a descriptor holding only the engine.
func Negotiate(name string, mode config.Mode, opts Options) (Target, Descriptor, error) {
	target, err := Resolve(name, mode)
	if err != nil {
		return Target{}, Descriptor{}, err
	}

	if !target.Remote {
		return target, newDescriptor(map[string]interface{}{"browser": string(target.Engine)}), nil
	}

	profile := remoteTargets[target.Name]

	b := &builder{}
	b.add(genericLayer(opts))
	b.add(classLayer(target))
	b.add(targetLayer(profile))
	b.add(environmentLayer(target, opts))
	b.add(forcedDiagnostics)

	fields := b.build()
	stripForeignKeys(target, fields, deviceOnlyKeys, desktopOnlyKeys)

	if target.Device != nil {
		// environment overrides may have changed the device
		target.Device.Name, _ = fields["device"].(string)
		target.Device.OSVersion, _ = fields["os_version"].(string)
	}

	nested := nestedOptions(target, fields)
	stripForeignKeys(target, nested, deviceOnlyOptions, desktopOnlyOptions)
	fields[OptionsKey] = map[string]interface{}(nested)

	return target, newDescriptor(fields), nil
}

// layer is one precedence level of descriptor fields.
type layer map[string]interface{}

// builder folds layers in insertion order; later layers win.
type builder struct {
	layers []layer
}

func (b *builder) add(l layer) {
	if len(l) > 0 {
		b.layers = append(b.layers, l)
	}
}

func (b *builder) build() layer {
	out := layer{}
	for _, l := range b.layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}

func genericLayer(opts Options) layer {
	return layer{
		"project":                  opts.Project,
		"build":                    opts.Build,
		"name":                     opts.SessionName,
		"browserstack.local":       opts.Tunnel,
		"browserstack.idleTimeout": 300,
		"browserstack.debug":       false,
		"browserstack.console":     "errors",
	}
}

func classLayer(t Target) layer {
	if !t.IsMobileDevice() {
		return nil
	}
	return layer{
		"realMobile":              true,
		"browserstack.deviceLogs": true,
		"browserstack.appiumLogs": true,
	}
}

func targetLayer(p remoteProfile) layer {
	l := layer{}
	for k, v := range p.fields {
		l[k] = v
	}
	if p.device != nil {
		l["device"] = p.device.Name
		l["os_version"] = p.device.OSVersion
	}
	return l
}

func environmentLayer(t Target, opts Options) layer {
	l := layer{}
	for k, v := range opts.Extra {
		l[k] = v
	}
	if t.IsMobileDevice() {
		if opts.DeviceName != "" {
			l["device"] = opts.DeviceName
		}
		if opts.OSVersion != "" {
			l["os_version"] = opts.OSVersion
		}
	}
	if opts.Tunnel && opts.TunnelIdentifier != "" {
		l["browserstack.localIdentifier"] = opts.TunnelIdentifier
	}
	return l
}

func nestedOptions(t Target, fields layer) layer {
	nested := layer{
		"browserName":    fields["browser"],
		"browserVersion": fields["browser_version"],
		"osVersion":      fields["os_version"],
		"projectName":    fields["project"],
		"buildName":      fields["build"],
		"sessionName":    fields["name"],
		"local":          fields["browserstack.local"],
		"debug":          true,
		"networkLogs":    true,
		"consoleLogs":    "verbose",
	}

	if id, ok := fields["browserstack.localIdentifier"]; ok {
		nested["localIdentifier"] = id
	}

	if t.IsMobileDevice() {
		nested["deviceName"] = fields["device"]
		nested["platformName"] = t.Device.OS
		nested["realMobile"] = true
		if t.Device.OS == "android" {
			nested["source"] = "playwright-cdp"
		}
		return nested
	}

	nested["os"] = fields["os"]
	return nested
}

func stripForeignKeys(t Target, fields layer, deviceOnly, desktopOnly []string) {
	foreign := deviceOnly
	if t.IsMobileDevice() {
		foreign = desktopOnly
	}
	for _, k := range foreign {
		delete(fields, k)
	}
}
