package remotesync

import (
	"context"
	"net/url"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// reachabilityTimeout bounds the ping so an unreachable or ICMP-filtered
// host never holds up Reachable for longer than this.
const reachabilityTimeout = 2 * time.Second

// Reachable ICMP-pings the remote sync host and reports whether it
// answered. It never errors: an unparseable URL, a failed or an
// unprivileged ping (common in containers without CAP_NET_RAW) just
// logs and reports the host as reachable.
func (c *Client) Reachable(ctx context.Context) bool {
	u, err := url.Parse(c.url)
	if err != nil || u.Hostname() == "" {
		return true
	}

	pinger, err := probing.NewPinger(u.Hostname())
	if err != nil {
		if c.logger != nil {
			c.logger.Debug("remotesync: pinger setup failed", zap.Error(err))
		}
		return true
	}
	pinger.Count = 1
	pinger.Timeout = reachabilityTimeout
	pinger.SetPrivileged(false)

	if err := pinger.RunWithContext(ctx); err != nil {
		if c.logger != nil {
			c.logger.Debug("remotesync: ping failed, assuming reachable", zap.Error(err))
		}
		return true
	}
	return pinger.Statistics().PacketsRecv > 0
}
