package models

import "errors"

// ParkingError is a sentinel error raised by the capture pipeline and record store.
// Code is the stable machine-readable kind sent to API clients.
type ParkingError struct {
	Code    string
	Message string
}

func (e ParkingError) Error() string {
	return e.Message
}

var (
	ErrInvalidInputType       = ParkingError{"invalid_input_type", "only image files can be uploaded"}
	ErrInputTooLarge          = ParkingError{"input_too_large", "image exceeds maximum upload size"}
	ErrDecode                 = ParkingError{"decode_error", "failed to decode image"}
	ErrEncode                 = ParkingError{"encode_error", "failed to encode image"}
	ErrQuotaExceeded          = ParkingError{"quota_exceeded", "not enough storage space for the parking record"}
	ErrCorruptRecord          = ParkingError{"corrupt_record", "stored parking record is corrupt"}
	ErrStore                  = ParkingError{"store_error", "parking record storage failed"}
	ErrGeolocationUnavailable = ParkingError{"geolocation_unavailable", "location is unavailable"}
	ErrEmptyPhoto             = ParkingError{"empty_photo", "parking record photo cannot be empty"}
	ErrPartialCoordinates     = ParkingError{"partial_coordinates", "latitude and longitude must be set together"}
	ErrInvalidCoordinates     = ParkingError{"invalid_coordinates", "coordinates out of range"}
	ErrInvalidDataURI         = ParkingError{"invalid_data_uri", "photo is not a valid data URI"}
)

// ErrorCode returns the ParkingError code carried by err, or "" when err
// does not wrap one.
func ErrorCode(err error) string {
	var pe ParkingError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
