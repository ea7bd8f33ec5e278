package mbrtu

import (
	"bytes"
	"errors"
	"testing"
)

func TestBuildReadFrame(t *testing.T) {
	f := BuildRead(OnBoardDeviceID, FuncReadHoldingRegisters, 0x0010, 0x0002)
	if len(f) != 8 {
		t.Fatalf("frame length = %d, want 8", len(f))
	}
	if f[0] != OnBoardDeviceID || f[1] != FuncReadHoldingRegisters {
		t.Fatalf("unexpected header: %v", f[:2])
	}
	if !VerifyCRC(f) {
		t.Fatalf("CRC does not verify: % x", f)
	}
}

func TestBuildWriteSingleFrame(t *testing.T) {
	f := BuildWriteSingle(OnBoardDeviceID, 0x0020, 0xBEEF)
	want := []byte{OnBoardDeviceID, FuncWriteSingleRegister, 0x00, 0x20, 0xBE, 0xEF}
	if !bytes.Equal(f[:len(want)], want) {
		t.Fatalf("frame header = % x, want % x", f[:len(want)], want)
	}
	if !VerifyCRC(f) {
		t.Fatalf("CRC does not verify: % x", f)
	}
}

func TestBuildWriteMultipleFrame(t *testing.T) {
	values := []uint16{1, 2, 3}
	f := BuildWriteMultiple(5, 0x0000, values)
	want := []byte{5, FuncWriteMultipleRegs, 0x00, 0x00, 0x00, 0x03, 0x06, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03}
	if !bytes.Equal(f[:len(want)], want) {
		t.Fatalf("frame header = % x, want % x", f[:len(want)], want)
	}
	if !VerifyCRC(f) {
		t.Fatalf("CRC does not verify: % x", f)
	}
}

func TestParseReadResponseSuccess(t *testing.T) {
	body := []byte{OnBoardDeviceID, FuncReadHoldingRegisters, 4, 0x00, 0x01, 0x00, 0x02}
	frame := AppendCRC(body)

	resp, err := ParseReadResponse(frame, FuncReadHoldingRegisters)
	if err != nil {
		t.Fatalf("ParseReadResponse: %v", err)
	}
	if resp.ByteCount != 4 {
		t.Fatalf("ByteCount = %d, want 4", resp.ByteCount)
	}
	regs := RegistersFromContent(resp.Content)
	if len(regs) != 2 || regs[0] != 1 || regs[1] != 2 {
		t.Fatalf("decoded registers = %v, want [1 2]", regs)
	}
}

func TestParseReadResponseBadCRC(t *testing.T) {
	body := []byte{OnBoardDeviceID, FuncReadHoldingRegisters, 2, 0x00, 0x01}
	frame := AppendCRC(body)
	frame[len(frame)-1] ^= 0xFF

	if _, err := ParseReadResponse(frame, FuncReadHoldingRegisters); err == nil {
		t.Fatal("expected CRC error")
	}
}

func TestParseReadResponseByteCountMismatch(t *testing.T) {
	body := []byte{OnBoardDeviceID, FuncReadHoldingRegisters, 9, 0x00, 0x01}
	frame := AppendCRC(body)

	if _, err := ParseReadResponse(frame, FuncReadHoldingRegisters); err == nil {
		t.Fatal("expected byte-count mismatch error")
	}
}

func TestParseReadResponseWrongFunctionCode(t *testing.T) {
	body := []byte{OnBoardDeviceID, FuncReadInputRegisters, 2, 0x00, 0x01}
	frame := AppendCRC(body)

	if _, err := ParseReadResponse(frame, FuncReadHoldingRegisters); err == nil {
		t.Fatal("expected function-code mismatch error")
	}
}

func TestParseExceptionResponse(t *testing.T) {
	body := []byte{OnBoardDeviceID, FuncReadHoldingRegisters | exceptionBit, byte(ExceptionIllegalAddr)}
	frame := AppendCRC(body)

	_, err := ParseReadResponse(frame, FuncReadHoldingRegisters)
	var exErr *ExceptionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected *ExceptionError, got %v", err)
	}
	if exErr.Code != ExceptionIllegalAddr {
		t.Fatalf("exception code = %v, want %v", exErr.Code, ExceptionIllegalAddr)
	}
	if exErr.Code.String() != "Addr" {
		t.Fatalf("exception code string = %q, want %q", exErr.Code.String(), "Addr")
	}
}

func TestParseWriteResponse(t *testing.T) {
	body := []byte{OnBoardDeviceID, FuncWriteSingleRegister, 0x00, 0x20, 0xBE, 0xEF}
	frame := AppendCRC(body)

	if err := ParseWriteResponse(frame, FuncWriteSingleRegister); err != nil {
		t.Fatalf("ParseWriteResponse: %v", err)
	}
}

func TestParseWriteResponseException(t *testing.T) {
	body := []byte{OnBoardDeviceID, FuncWriteSingleRegister | exceptionBit, byte(ExceptionDeviceBusy)}
	frame := AppendCRC(body)

	err := ParseWriteResponse(frame, FuncWriteSingleRegister)
	var exErr *ExceptionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected *ExceptionError, got %v", err)
	}
	if exErr.Code != ExceptionDeviceBusy {
		t.Fatalf("exception code = %v, want %v", exErr.Code, ExceptionDeviceBusy)
	}
}
