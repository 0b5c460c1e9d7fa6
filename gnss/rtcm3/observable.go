package rtcm3

import (
	"fmt"

	"github.com/goblimey/go-gnssparser/gnss/utils"
)

// Lengths of the fields of the observable header.
const (
	lenGPSEpoch           = 30
	lenGlonassEpoch       = 27
	lenSynchronous        = 1
	lenNumberOfSatellites = 5
	lenSmoothingIndicator = 1
	lenSmoothingInterval  = 3
)

// MaxObservableSatellites is the largest number of satellites that the
// observable header can count.
const MaxObservableSatellites = 1<<lenNumberOfSatellites - 1

// ObservableHeader is the header of the legacy observation messages, GPS
// 1001-1004 and GLONASS 1009-1012.
type ObservableHeader struct {
	MessageNumber uint16 `json:"message_number"`

	// StationID - uint12.
	StationID uint `json:"station_id"`

	// Epoch is the GPS time of week in milliseconds (uint30) or the
	// GLONASS time of day in milliseconds (uint27).
	Epoch uint `json:"epoch"`

	// Synchronous is set if more observations for the same epoch
	// follow.
	Synchronous bool `json:"synchronous"`

	NumberOfSatellites uint `json:"number_of_satellites"`

	SmoothingIndicator bool `json:"smoothing_indicator"`

	// SmoothingInterval - uint3.
	SmoothingInterval uint `json:"smoothing_interval"`
}

// epochLength returns the length of the epoch field in messages of the
// given type.  Only the observation messages have an epoch.
func epochLength(messageNumber uint16) (uint, error) {
	switch {
	case messageNumber >= 1001 && messageNumber <= 1004:
		return lenGPSEpoch, nil
	case messageNumber >= 1009 && messageNumber <= 1012:
		return lenGlonassEpoch, nil
	default:
		return 0, fmt.Errorf("message %d is not an observable message", messageNumber)
	}
}

// observableHeaderLength returns the length in bits of the observable
// header of the given message type.
func observableHeaderLength(messageNumber uint16) (uint, error) {
	lenEpoch, err := epochLength(messageNumber)
	if err != nil {
		return 0, err
	}
	return lenMessageNumber + lenStationID + lenEpoch + lenSynchronous +
		lenNumberOfSatellites + lenSmoothingIndicator + lenSmoothingInterval, nil
}

// Deserialize reads the header from bitStream starting at bit pos, which is
// the position of the message number.  It returns the position of the
// first bit after the header.
func (h *ObservableHeader) Deserialize(bitStream []byte, pos uint) (uint, error) {
	messageNumber := uint16(utils.GetBitsAsUint64(bitStream, pos, lenMessageNumber))
	lenHeader, err := observableHeaderLength(messageNumber)
	if err != nil {
		return 0, err
	}
	if uint(len(bitStream))*8 < pos+lenHeader {
		return 0, fmt.Errorf("overrun - expected %d bits in the header of message type %d",
			lenHeader, messageNumber)
	}
	lenEpoch, _ := epochLength(messageNumber)

	h.MessageNumber = messageNumber
	pos += lenMessageNumber
	h.StationID = uint(utils.GetBitsAsUint64(bitStream, pos, lenStationID))
	pos += lenStationID
	h.Epoch = uint(utils.GetBitsAsUint64(bitStream, pos, lenEpoch))
	pos += lenEpoch
	h.Synchronous = getBool(bitStream, pos)
	pos += lenSynchronous
	h.NumberOfSatellites = uint(utils.GetBitsAsUint64(bitStream, pos, lenNumberOfSatellites))
	pos += lenNumberOfSatellites
	h.SmoothingIndicator = getBool(bitStream, pos)
	pos += lenSmoothingIndicator
	h.SmoothingInterval = uint(utils.GetBitsAsUint64(bitStream, pos, lenSmoothingInterval))
	pos += lenSmoothingInterval

	return pos, nil
}

// Serialize writes the header into bitStream starting at bit pos and
// returns the position of the first bit after it.
func (h *ObservableHeader) Serialize(bitStream []byte, pos uint) (uint, error) {
	lenEpoch, err := epochLength(h.MessageNumber)
	if err != nil {
		return 0, err
	}
	if h.NumberOfSatellites > MaxObservableSatellites {
		return 0, fmt.Errorf("%d satellites - the maximum is %d",
			h.NumberOfSatellites, MaxObservableSatellites)
	}

	utils.SetBitsFromUint64(bitStream, pos, lenMessageNumber, uint64(h.MessageNumber))
	pos += lenMessageNumber
	utils.SetBitsFromUint64(bitStream, pos, lenStationID, uint64(h.StationID))
	pos += lenStationID
	utils.SetBitsFromUint64(bitStream, pos, lenEpoch, uint64(h.Epoch))
	pos += lenEpoch
	setBool(bitStream, pos, h.Synchronous)
	pos += lenSynchronous
	utils.SetBitsFromUint64(bitStream, pos, lenNumberOfSatellites, uint64(h.NumberOfSatellites))
	pos += lenNumberOfSatellites
	setBool(bitStream, pos, h.SmoothingIndicator)
	pos += lenSmoothingIndicator
	utils.SetBitsFromUint64(bitStream, pos, lenSmoothingInterval, uint64(h.SmoothingInterval))
	pos += lenSmoothingInterval

	return pos, nil
}

func (h *ObservableHeader) String() string {
	return fmt.Sprintf("type %d, station %d, epoch %d, %d satellites, synchronous %v\n",
		h.MessageNumber, h.StationID, h.Epoch, h.NumberOfSatellites, h.Synchronous)
}
