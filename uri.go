// RTMP URI parsing

package rtmp

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultPort is the default RTMP TCP port.
const DefaultPort = 1935

// RtmpUri is an immutable, parsed rtmp:// connection target:
// rtmp://host[:port]/app[/instance...]
type RtmpUri struct {
	Scheme   string
	Host     string
	Port     int
	App      string
	Instance string
}

// ParseRtmpUri parses a URI of the form rtmp://host[:port]/app[/instance].
func ParseRtmpUri(raw string) (RtmpUri, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return RtmpUri{}, &InvalidArgument{Reason: "malformed uri: " + err.Error()}
	}

	if u.Scheme == "" {
		return RtmpUri{}, &InvalidArgument{Reason: "uri is missing a scheme"}
	}

	if u.Hostname() == "" {
		return RtmpUri{}, &InvalidArgument{Reason: "uri is missing a host"}
	}

	port := DefaultPort
	if p := u.Port(); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			return RtmpUri{}, &InvalidArgument{Reason: "invalid port: " + p}
		}
		port = parsed
	}

	path := strings.Trim(u.Path, "/")
	app := path
	instance := ""
	if idx := strings.Index(path, "/"); idx >= 0 {
		app = path[:idx]
		instance = path[idx+1:]
	}

	if app == "" {
		return RtmpUri{}, &InvalidArgument{Reason: "uri is missing an application name"}
	}

	return RtmpUri{
		Scheme:   u.Scheme,
		Host:     u.Hostname(),
		Port:     port,
		App:      app,
		Instance: instance,
	}, nil
}

// Address returns the "host:port" string suitable for net.Dial.
func (u RtmpUri) Address() string {
	return u.Host + ":" + strconv.Itoa(u.Port)
}

// StreamPath returns the app path, joined with the instance if present.
func (u RtmpUri) StreamPath() string {
	if u.Instance == "" {
		return u.App
	}
	return u.App + "/" + u.Instance
}

// String renders the URI back into rtmp://host:port/app/instance form.
func (u RtmpUri) String() string {
	s := u.Scheme + "://" + u.Host + ":" + strconv.Itoa(u.Port) + "/" + u.App
	if u.Instance != "" {
		s += "/" + u.Instance
	}
	return s
}
