package server

// Package server exposes the HTTP API: task submission and polling, artifact
// download, cookie upload and the troubleshooting endpoints. Handlers are
// thin; all pipeline work happens in the task package.
