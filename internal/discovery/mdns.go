// ABOUTME: mDNS service discovery for the remote control server
// ABOUTME: Advertises a running engine and browses for engines on the LAN
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD type of the control server
const ServiceType = "_nrplayback._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Path        string // websocket path, advertised in TXT
	SessionID   string
}

// Manager handles mDNS operations
type Manager struct {
	config Config
	ctx    context.Context
	cancel context.CancelFunc
}

// EngineInfo describes a discovered engine
type EngineInfo struct {
	Name string
	Host string
	Port int
	Path string
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Path == "" {
		config.Path = "/control"
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// txtRecords returns the TXT records for the advertised service
func (m *Manager) txtRecords() []string {
	txt := []string{"path=" + m.config.Path}
	if m.config.SessionID != "" {
		txt = append(txt, "session="+m.config.SessionID)
	}
	return txt
}

// Advertise advertises the control server via mDNS until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.txtRecords(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse queries the LAN once and returns the engines that answered
func Browse(timeout time.Duration) ([]EngineInfo, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	var found []EngineInfo
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			info := EngineInfo{
				Name: entry.Name,
				Port: entry.Port,
				Path: pathFromTXT(entry.InfoFields),
			}
			if entry.AddrV4 != nil {
				info.Host = entry.AddrV4.String()
			} else if entry.AddrV6 != nil {
				info.Host = entry.AddrV6.String()
			}
			log.Printf("Discovered engine: %s at %s:%d", info.Name, info.Host, info.Port)
			found = append(found, info)
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return found, fmt.Errorf("mdns query failed: %w", err)
	}
	return found, nil
}

func pathFromTXT(fields []string) string {
	for _, f := range fields {
		if len(f) > 5 && f[:5] == "path=" {
			return f[5:]
		}
	}
	return "/control"
}

// Stop stops advertising
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
