package task

// Package task owns the lifecycle of download-and-convert jobs: the
// in-memory task table, the bounded-parallelism orchestrator that drives each
// job through extraction, fetch and transcode, and the mapping from failure
// categories to user-facing guidance.
