package pins_test

import (
	"errors"
	"testing"

	"github.com/herlein/cc1101/pkg/chipsim"
	"github.com/herlein/cc1101/pkg/pins"
	"github.com/herlein/cc1101/pkg/registers"
)

func TestStatusLine(t *testing.T) {
	chip := chipsim.New("dut", 0)
	if err := chip.WriteRegister(registers.RegIOCFG2, registers.IOCFGPacketCRCOK); err != nil {
		t.Fatal(err)
	}
	line := pins.NewStatusLine(chip)

	if _, err := line.ReadLine(25); !errors.Is(err, pins.ErrPinNotOpen) {
		t.Fatalf("got %v, want ErrPinNotOpen", err)
	}
	if err := line.OpenPin(8, pins.Output); err == nil {
		t.Error("output line accepted")
	}
	if err := line.OpenPin(25, pins.Input); err != nil {
		t.Fatal(err)
	}

	if high, err := line.ReadLine(25); err != nil || high {
		t.Fatalf("empty FIFO: %t, %v", high, err)
	}
	chip.Inject([]byte{2, 1, 2})
	for i := 0; i < 2; i++ {
		if high, err := line.ReadLine(25); err != nil || !high {
			t.Fatalf("read %d with data: %t, %v", i, high, err)
		}
	}
	if err := line.WriteLine(25, true); !errors.Is(err, pins.ErrWrongDirection) {
		t.Errorf("got %v, want ErrWrongDirection", err)
	}
	if err := line.Close(); err != nil || line.IsPinOpen(25) {
		t.Errorf("Close: %v", err)
	}
}

func TestStatusLineWaitsForWholeFrame(t *testing.T) {
	chip := chipsim.New("dut", 0)
	if err := chip.WriteRegister(registers.RegIOCFG2, registers.IOCFGPacketCRCOK); err != nil {
		t.Fatal(err)
	}
	line := pins.NewStatusLine(chip)
	if err := line.OpenPin(25, pins.Input); err != nil {
		t.Fatal(err)
	}
	read := func() bool {
		t.Helper()
		high, err := line.ReadLine(25)
		if err != nil {
			t.Fatal(err)
		}
		return high
	}

	// length, address, source, first payload byte
	chip.Feed([]byte{4, 0x21, 0x0F, 'h'})
	if read() {
		t.Fatal("line high with half a frame in the FIFO")
	}
	// last payload byte, RSSI, LQI without CRC_OK
	chip.Feed([]byte{'i', 0x40})
	if read() {
		t.Fatal("line high before the status bytes arrived")
	}
	chip.Feed([]byte{0x20 | registers.StatusCRCOK})
	if !read() {
		t.Fatal("line low with a whole frame in the FIFO")
	}

	if _, err := chip.ReadBurst(registers.RegFIFO, 7); err != nil {
		t.Fatal(err)
	}
	if read() {
		t.Fatal("line high after the FIFO was drained")
	}

	chip.SetLinkQuality(0x40, 0x20, false)
	chip.Inject([]byte{4, 0x21, 0x0F, 'h', 'i'})
	if read() {
		t.Error("line high for a frame that failed CRC")
	}
}
