// Package units provides shared constants and conversions for the time and
// speed values carried in TrackMate tracking exports.
package units

// Conversion constants
const (
	SecondsPerHour   = 3600.0
	SecondsPerMinute = 60.0
)

// SecondsToHours converts a timestamp from seconds to hours and applies the
// replicate time offset. Offsets are expressed in hours (the offset folder
// suffix, e.g. offset_27 → 27.0).
func SecondsToHours(seconds, offsetHours float64) float64 {
	return seconds/SecondsPerHour + offsetHours
}

// DurationSecondsToHours converts a duration from seconds to hours. Durations
// never carry a time offset.
func DurationSecondsToHours(seconds float64) float64 {
	return seconds / SecondsPerHour
}

// SpeedPerSecondToPerMinute converts a speed from length-units per second to
// length-units per minute. TrackMate exports SPEED per second; analysis
// outputs report per minute.
func SpeedPerSecondToPerMinute(speed float64) float64 {
	return speed * SecondsPerMinute
}
