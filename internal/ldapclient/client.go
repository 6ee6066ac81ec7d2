package ldapclient

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/config"
	"github.com/matthewdavidson09/cloud-attribute-sync/tools"
)

// Conn is the subset of *ldap.Conn used by this module.
type Conn interface {
	Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error)
	Modify(modifyRequest *ldap.ModifyRequest) error
}

type LDAPClient struct {
	Conn   Conn
	BaseDN string

	raw *ldap.Conn
}

// New wraps an existing connection, mostly for tests.
func New(conn Conn, baseDN string) *LDAPClient {
	return &LDAPClient{Conn: conn, BaseDN: baseDN}
}

// Connect resolves the LDAP hostname to an IP and returns a bound LDAPClient.
func Connect(cfg config.LDAP) (*LDAPClient, error) {
	addrs, err := net.LookupHost(cfg.Server)
	if err != nil || len(addrs) == 0 {
		return nil, fmt.Errorf("DNS lookup failed for %s: %v", cfg.Server, err)
	}
	ip := addrs[0]

	tools.Log.WithFields(map[string]interface{}{
		"host": cfg.Server,
		"ip":   ip,
		"port": cfg.Port,
	}).Debug("Resolved LDAP server IP")

	return ConnectWithIP(cfg, ip)
}

// ConnectWithIP connects to a specific LDAP IP and returns a bound client.
func ConnectWithIP(cfg config.LDAP, ip string) (*LDAPClient, error) {
	scheme := "ldap"
	if cfg.UseTLS {
		scheme = "ldaps"
	}
	url := fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(ip, cfg.Port))
	tools.Log.WithField("url", url).Debug("Connecting to resolved LDAP IP")

	opts := []ldap.DialOpt{ldap.DialWithDialer(&net.Dialer{Timeout: 10 * time.Second})}
	if cfg.UseTLS {
		// Certificates are issued for the host name, not the resolved IP.
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{
			ServerName:         cfg.Server,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		}))
	}

	conn, err := ldap.DialURL(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP: %w", err)
	}
	if cfg.Timeout > 0 {
		conn.SetTimeout(cfg.Timeout)
	}

	if err := conn.Bind(cfg.User, cfg.Password); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to bind: %w", err)
	}

	tools.Log.Debug("Successfully bound to LDAP")

	return &LDAPClient{
		Conn:   conn,
		BaseDN: cfg.BaseDN,
		raw:    conn,
	}, nil
}

// Close cleans up the connection
func (c *LDAPClient) Close() {
	if c.raw != nil {
		c.raw.Close()
		tools.Log.Debug("Closed LDAP connection")
	}
}
