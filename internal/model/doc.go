package model

// Package model defines domain data structures used across the service:
// download tasks, pipeline phases, and the classified error taxonomy shared
// by the extraction, fetch and transcode layers.
