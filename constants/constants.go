// constants.go - agent SDK protocol and timing constants.
// Copyright (C) 2024  hmdev contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package constants holds the agent SDK's fixed protocol and timing
// parameters.
package constants

import "time"

const (
	// DefaultReceiveLimit is the default page size of a pull request.
	DefaultReceiveLimit = 20

	// DefaultPasswordWaitTimeout is the default deadline for a
	// password-request round trip.
	DefaultPasswordWaitTimeout = 5 * time.Second

	// MaxPasswordWaitTimeout bounds a caller-supplied password-request
	// deadline.
	MaxPasswordWaitTimeout = 10 * time.Second

	// PasswordPollInterval is how often the requester re-checks the
	// receive path for a password-reply while waiting.
	PasswordPollInterval = 400 * time.Millisecond

	// ReceivePumpIdleDelay is the pause between pull rounds, applied
	// both after a successful round and after a soft failure.
	ReceivePumpIdleDelay = 500 * time.Millisecond

	// HTTPPullTimeout is the client timeout for /pull requests, which the
	// server may hold open for up to this long.
	HTTPPullTimeout = 40 * time.Second

	// HTTPDefaultTimeout is the client timeout for all other HTTP calls.
	HTTPDefaultTimeout = 30 * time.Second

	// UDPPullTimeout bounds how long udpPull blocks on a reply.
	UDPPullTimeout = 3 * time.Second

	// ThrottleMaxRequests is the HTTP throttle's request budget.
	ThrottleMaxRequests = 12

	// ThrottleWindow is the HTTP throttle's fixed window duration.
	ThrottleWindow = 1 * time.Second

	// DefaultUDPPort is used when the HTTP base URL's host has no
	// configured UDP port override.
	DefaultUDPPort = 9999

	// UserAgent is sent on every HTTP request.
	UserAgent = "messaging-agent-sdk-go/1.0"

	// MaxJSONDepth bounds nested-object/array depth when parsing
	// responses, replacing the Python recursion-limit guard.
	MaxJSONDepth = 32

	// KDFSalt is the literal PBKDF2 salt; it must match every other
	// language's agent byte-for-byte.
	KDFSalt = "messaging-platform"

	// KDFIterations is the PBKDF2 iteration count.
	KDFIterations = 100000

	// KDFKeyLength is the derived channel secret length in bytes.
	KDFKeyLength = 32

	// ChannelSecretPrefix prefixes every derived channel secret.
	ChannelSecretPrefix = "channel_"
)

// Event type strings recognized on the wire.
const (
	EventChatText        = "chat-text"
	EventPasswordRequest = "password-request"
	EventPasswordReply   = "password-reply"
)

// Poll sources accepted by ReceiveConfig.
const (
	PollSourceAuto  = "AUTO"
	PollSourceCache = "CACHE"
	PollSourceKafka = "KAFKA"
)

// API key scopes accepted by connect.
const (
	APIKeyScopePrivate = "private"
	APIKeyScopePublic  = "public"
)

// Environment variable names recognized by config.Load.
const (
	EnvAPIURL    = "MESSAGING_API_URL"
	EnvAPIKey    = "MESSAGING_API_KEY"
	EnvAPIKeyAlt = "DEFAULT_API_KEY"
	EnvUDPPort   = "MESSAGING_UDP_PORT"
)

// DefaultAPIURL is used when no override is configured.
const DefaultAPIURL = "https://api.messaging-platform.example.com"

// SessionRecoveryDir is the per-user directory holding one recovery file
// per channel.
const SessionRecoveryDir = ".agent_sessions"
