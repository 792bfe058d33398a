// Package api provides the webhook scheduler REST API.
//
//	@title			Webhook Scheduler API
//	@version		1.0
//	@description	Registers one-shot and recurring webhook jobs and exposes their execution history.
package api
