// ABOUTME: mDNS service discovery for monitor taps
// ABOUTME: Handles both advertisement (tap server) and browsing (tap listeners)
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service a tap server advertises
const ServiceType = "_liveeffect-tap._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	TXT         []string
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo

	mu     sync.Mutex
	server *mdns.Server
	seen   map[string]bool
}

// ServerInfo describes a discovered tap server
type ServerInfo struct {
	Name string
	Host string
	Port int
	TXT  []string
}

// Addr returns host:port
func (s *ServerInfo) Addr() string {
	return net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
		seen:    make(map[string]bool),
	}
}

// Advertise publishes the tap via mDNS until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	txt := append([]string{"path=/tap"}, m.config.TXT...)
	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		txt,
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.mu.Lock()
	m.server = server
	m.mu.Unlock()

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)
	return nil
}

// Browse searches for tap servers in the background
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

// browseLoop queries repeatedly until Stop
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				m.handleEntry(entry)
			}
		}()

		params := mdns.DefaultParams(ServiceType)
		params.Entries = entries
		params.Timeout = 3 * time.Second
		params.DisableIPv6 = true

		if err := mdns.Query(params); err != nil {
			log.Printf("mDNS query failed: %v", err)
		}
		close(entries)
		<-done
	}
}

func (m *Manager) handleEntry(entry *mdns.ServiceEntry) {
	if entry.AddrV4 == nil || !strings.Contains(entry.Name, ServiceType) {
		return
	}
	server := &ServerInfo{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		TXT:  entry.InfoFields,
	}

	m.mu.Lock()
	if m.seen[server.Addr()] {
		m.mu.Unlock()
		return
	}
	m.seen[server.Addr()] = true
	m.mu.Unlock()

	log.Printf("Discovered tap: %s at %s", server.Name, server.Addr())

	select {
	case m.servers <- server:
	case <-m.ctx.Done():
	}
}

// Servers returns the channel of discovered servers
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Stop shuts down advertisement and browsing
func (m *Manager) Stop() {
	m.cancel()

	m.mu.Lock()
	server := m.server
	m.server = nil
	m.mu.Unlock()

	if server != nil {
		if err := server.Shutdown(); err != nil {
			log.Printf("mDNS shutdown error: %v", err)
		}
	}
}

// getLocalIPs returns non-loopback IPv4 addresses of interfaces that are up
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
