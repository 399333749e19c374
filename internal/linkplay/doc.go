// Package linkplay is the HTTP device client for LinkPlay-style
// speaker firmware.
//
// Each device exposes a small JSON API on its LAN address:
//
//	GET  /api/v1/status   current status (volume, play_state, role, peers)
//	POST /api/v1/command  {action, params}
//
// The client maps transport conditions onto the core error taxonomy:
// HTTP 4xx on a command is an active refusal (player.ErrRejected, never
// retried); connection failures and 5xx wrap player.ErrUnreachable
// (transient, recovered via polling backoff); a context deadline
// overrun surfaces as context.DeadlineExceeded. Undecodable status
// bodies wrap player.ErrMalformedPayload so the previous snapshot is
// retained.
//
// The device-id-to-host mapping comes from configuration; the core
// packages see only the poll.Client and dispatch.Client interfaces.
package linkplay
