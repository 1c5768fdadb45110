// Package analytics derives read-only study-health views from review
// history and card state: streak level, readiness forecast and weak topics.
//
// Every function takes its inputs as values and never mutates them. Trailing
// windows are measured in local days through package localday.
package analytics
