package transport

import (
	"bytes"
	"errors"
	"testing"
)

type recordingDuplex struct {
	writes [][]byte
	reply  []byte
	err    error
}

func (d *recordingDuplex) Tx(w, r []byte) error {
	d.writes = append(d.writes, append([]byte(nil), w...))
	if d.err != nil {
		return d.err
	}
	if r != nil {
		copy(r, d.reply)
	}
	return nil
}

func TestBusAccessBits(t *testing.T) {
	tests := []struct {
		name string
		do   func(b *Bus) error
		want []byte
	}{
		{
			name: "strobe sends bare command",
			do:   func(b *Bus) error { return b.Strobe(0x36) },
			want: []byte{0x36},
		},
		{
			name: "single write",
			do:   func(b *Bus) error { return b.WriteRegister(0x0D, 0x21) },
			want: []byte{0x0D, 0x21},
		},
		{
			name: "single read",
			do: func(b *Bus) error {
				_, err := b.ReadRegister(0x0A)
				return err
			},
			want: []byte{0x8A, 0x00},
		},
		{
			name: "status register keeps burst bit",
			do: func(b *Bus) error {
				_, err := b.ReadRegister(0xF5)
				return err
			},
			want: []byte{0xF5, 0x00},
		},
		{
			name: "burst write",
			do:   func(b *Bus) error { return b.WriteBurst(0x3F, []byte{1, 2, 3}) },
			want: []byte{0x7F, 1, 2, 3},
		},
		{
			name: "burst read",
			do: func(b *Bus) error {
				_, err := b.ReadBurst(0x3F, 2)
				return err
			},
			want: []byte{0xFF, 0x00, 0x00},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &recordingDuplex{}
			if err := tt.do(New(d)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(d.writes) != 1 || !bytes.Equal(d.writes[0], tt.want) {
				t.Errorf("wrote %X, want %X", d.writes, tt.want)
			}
		})
	}
}

func TestBusReadSkipsStatusByte(t *testing.T) {
	d := &recordingDuplex{reply: []byte{0x1F, 0xAA, 0xBB}}
	b := New(d)

	v, err := b.ReadRegister(0x00)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0xAA {
		t.Errorf("ReadRegister() = 0x%02X, want 0xAA", v)
	}

	data, err := b.ReadBurst(0x3F, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte{0xAA, 0xBB}) {
		t.Errorf("ReadBurst() = %X, want AABB", data)
	}
}

func TestBusWrapsErrors(t *testing.T) {
	d := &recordingDuplex{err: ErrShortTransfer}
	_, err := New(d).ReadRegister(0x01)
	if !errors.Is(err, ErrShortTransfer) {
		t.Errorf("error %v does not wrap ErrShortTransfer", err)
	}
}

func TestSelectorParse(t *testing.T) {
	tests := []struct {
		sel     Selector
		want    parsedSelector
		wantErr bool
	}{
		{sel: "", want: parsedSelector{kind: selectFirst}},
		{sel: "#2", want: parsedSelector{kind: selectIndex, index: 2}},
		{sel: "#x", wantErr: true},
		{sel: "#-1", wantErr: true},
		{sel: "1:10", want: parsedSelector{kind: selectBusAddr, bus: 1, addr: 10}},
		{sel: "a:10", wantErr: true},
		{sel: "009a", want: parsedSelector{kind: selectSerial, serial: "009a"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sel), func(t *testing.T) {
			got, err := tt.sel.parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSelectorPick(t *testing.T) {
	bridges := []*CH341{
		{Serial: "a", BusNum: 1, Address: 4},
		{Serial: "b", BusNum: 1, Address: 7},
		{Serial: "b", BusNum: 2, Address: 3},
	}
	tests := []struct {
		name    string
		sel     Selector
		want    int
		wantErr bool
	}{
		{name: "first", sel: "", want: 0},
		{name: "index", sel: "#1", want: 1},
		{name: "index out of range", sel: "#3", wantErr: true},
		{name: "bus addr", sel: "2:3", want: 2},
		{name: "bus addr missing", sel: "9:9", wantErr: true},
		{name: "unique serial", sel: "a", want: 0},
		{name: "duplicate serial", sel: "b", wantErr: true},
		{name: "unknown serial", sel: "z", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.sel.parse()
			if err != nil {
				t.Fatal(err)
			}
			got, err := p.pick(bridges)
			if (err != nil) != tt.wantErr {
				t.Fatalf("pick() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("pick() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSelectorPickEmpty(t *testing.T) {
	_, err := parsedSelector{kind: selectFirst}.pick(nil)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("pick(nil) error = %v, want ErrDeviceNotFound", err)
	}
}
