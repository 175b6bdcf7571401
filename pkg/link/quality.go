package link

import "github.com/herlein/cc1101/pkg/registers"

// DefaultRSSIOffset is the datasheet RSSI offset at 868MHz and 250kBaud.
// Other bands and rates differ by a few dB.
const DefaultRSSIOffset = 74

// RSSIToDBm converts the RSSI status byte to dBm. The byte is two's
// complement in half-dB steps; the division truncates toward zero.
func RSSIToDBm(raw byte, offset int) int {
	return int(int8(raw))/2 - offset
}

// LQI returns the 7-bit link quality from the LQI status byte
func LQI(raw byte) uint8 {
	return raw & registers.StatusLQIMask
}

// CRCOK reports the CRC flag from the unmasked LQI status byte
func CRCOK(raw byte) bool {
	return raw&registers.StatusCRCOK != 0
}
