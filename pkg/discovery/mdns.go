package discovery

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// mDNS service parameters for printer announcements.
const (
	// ServiceType is the printer's mDNS service type.
	ServiceType = "_bambulab._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// BrowseTimeout is the default timeout for a lookup.
	BrowseTimeout = 10 * time.Second
)

// ErrNotFound indicates no printer with the requested serial announced
// itself within the timeout.
var ErrNotFound = errors.New("discovery: printer not found")

// Printer is one discovered printer announcement.
type Printer struct {
	// Serial is the printer serial from the TXT records (or the instance
	// name when no TXT serial is present).
	Serial string

	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the announced hostname.
	Host string

	// Addresses are the printer's IP addresses, IPv4 first.
	Addresses []string

	// Port is the announced service port.
	Port int
}

// Addr returns the preferred address for connecting: the first announced
// IP, falling back to the hostname.
func (p *Printer) Addr() string {
	if len(p.Addresses) > 0 {
		return p.Addresses[0]
	}
	return strings.TrimSuffix(p.Host, ".")
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout is the default timeout for lookup operations.
	// Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// Browser provides mDNS printer browsing.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates a browser.
func NewBrowser(config BrowserConfig) *Browser {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	return &Browser{config: config}
}

// Browse searches for printers. The returned channel emits each distinct
// printer once, with addresses aggregated across interfaces, and closes
// when the context is cancelled.
func (b *Browser) Browse(ctx context.Context) (<-chan *Printer, error) {
	out := make(chan *Printer)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	// Process entries with aggregation
	go func() {
		defer close(out)

		// Track printers by instance name, aggregating addresses
		printers := make(map[string]*Printer)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				p := entryToPrinter(entry)
				if p == nil {
					continue
				}

				existing, found := printers[p.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, p.Addresses)
					continue
				}

				printers[p.InstanceName] = p
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				delete(printers, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	// Start browsing in background
	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// FindBySerial searches for a specific printer.
// Returns when found, or ErrNotFound when the timeout elapses.
func (b *Browser) FindBySerial(ctx context.Context, serial string) (*Printer, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	printers, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case p, ok := <-printers:
			if !ok {
				return nil, ErrNotFound
			}
			if strings.EqualFold(p.Serial, serial) {
				return p, nil
			}
		case <-ctx.Done():
			return nil, ErrNotFound
		}
	}
}

// browserOptions builds zeroconf client options.
func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	// Select specific interface if configured
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToPrinter converts a zeroconf entry to a Printer.
func entryToPrinter(entry *zeroconf.ServiceEntry) *Printer {
	if entry == nil {
		return nil
	}

	// Collect addresses, IPv4 first
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &Printer{
		Serial:       serialFromTXT(entry.Text, entry.Instance),
		InstanceName: entry.Instance,
		Host:         entry.HostName,
		Addresses:    addrs,
		Port:         entry.Port,
	}
}

// serialFromTXT extracts the serial from TXT records.
// Falls back to the instance name when no serial key is present.
func serialFromTXT(txt []string, instance string) string {
	for _, record := range txt {
		key, value, found := strings.Cut(record, "=")
		if !found {
			continue
		}
		switch strings.ToLower(key) {
		case "serial", "usn", "devid":
			if value != "" {
				return value
			}
		}
	}
	return instance
}

// mergeAddresses appends addresses from b that are not already in a.
func mergeAddresses(a, b []string) []string {
	seen := make(map[string]struct{}, len(a))
	for _, addr := range a {
		seen[addr] = struct{}{}
	}
	for _, addr := range b {
		if _, ok := seen[addr]; !ok {
			a = append(a, addr)
		}
	}
	return a
}
