// Package portprobe checks whether TCP ports accept connections.
package portprobe

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/richxcame/geoippro/internal/risk"
)

var probesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "geoippro_port_probes_total",
	Help: "TCP port probes by port and result",
}, []string{"port", "result"})

// Prober implements risk.PortProbe with plain TCP dials.
type Prober struct {
	dialer net.Dialer
}

var _ risk.PortProbe = (*Prober)(nil)

// New creates a Prober.
func New() *Prober {
	return &Prober{}
}

// TryConnect dials ip:port and reports whether the handshake completed
// within timeout. The connection is closed immediately.
func (p *Prober) TryConnect(ctx context.Context, ip string, port int, timeout time.Duration) bool {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := p.dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		probesTotal.WithLabelValues(strconv.Itoa(port), "closed").Inc()
		return false
	}
	_ = conn.Close()
	probesTotal.WithLabelValues(strconv.Itoa(port), "open").Inc()
	return true
}
