package platform

// Package platform contains filesystem and formatting helpers shared across
// the pipeline: filename sanitization, duration formatting, and discovery of
// task-scoped download candidates in the working directory.
