package server

import "github.com/dotside-studios/davi-uhf-agent/buildinfo"

// mDNS service discovery constants
var (
	MDNSServiceType = "_uhf-agent._tcp"
	MDNSServiceName = buildinfo.DisplayName
	MDNSDomain      = "local."
)

// CORS configuration
const (
	CORSAllowOrigin  = "*"
	CORSAllowMethods = "GET, POST, OPTIONS"
	CORSAllowHeaders = "Content-Type, Authorization, X-API-Secret"
)

// APISecretHeader carries the optional API secret for non-browser clients.
const APISecretHeader = "X-API-Secret"

// statusBuffer is how many snapshots may queue for a slow status client
// before new ones are dropped.
const statusBuffer = 16
