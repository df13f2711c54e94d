package speech

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

// ASR 上游使用的二进制帧：4 字节头 + 可选序号 + 4 字节长度 + payload。
const frameProtocolVersion = 0b0001

type frameType uint8

const (
	frameFullClientRequest  frameType = 0b0001
	frameAudioOnlyRequest   frameType = 0b0010
	frameFullServerResponse frameType = 0b1001
	frameServerError        frameType = 0b1111
)

type frameFlags uint8

const (
	flagNoSequence       frameFlags = 0b0000
	flagPositiveSequence frameFlags = 0b0001
	flagLastNoSequence   frameFlags = 0b0010
	flagNegativeSequence frameFlags = 0b0011
)

const (
	serializationNone uint8 = 0b0000
	serializationJSON uint8 = 0b0001

	compressionNone uint8 = 0b0000
	compressionGzip uint8 = 0b0001
)

// frame 是一条解码后的 ASR 协议消息。
type frame struct {
	Type          frameType
	Flags         frameFlags
	Serialization uint8
	Compression   uint8
	Sequence      int32
	ErrorCode     uint32
	Payload       []byte
}

func (f *frame) hasSequence() bool {
	switch f.Flags & 0b0011 {
	case flagPositiveSequence, flagNegativeSequence:
		return true
	}
	return false
}

// isLast 判断是否为最后一包
func (f *frame) isLast() bool {
	switch f.Flags & 0b0011 {
	case flagLastNoSequence, flagNegativeSequence:
		return true
	}
	return false
}

func (f *frame) encode() []byte {
	var buf bytes.Buffer
	buf.WriteByte(frameProtocolVersion<<4 | 0b0001)
	buf.WriteByte(uint8(f.Type)<<4 | uint8(f.Flags))
	buf.WriteByte(f.Serialization<<4 | f.Compression)
	buf.WriteByte(0x00)

	if f.hasSequence() {
		_ = binary.Write(&buf, binary.BigEndian, f.Sequence)
	}
	if f.Type == frameServerError {
		_ = binary.Write(&buf, binary.BigEndian, f.ErrorCode)
	}
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(f.Payload)))
	buf.Write(f.Payload)
	return buf.Bytes()
}

func decodeFrame(data []byte) (*frame, error) {
	r := bytes.NewReader(data)

	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if version := header[0] >> 4; version != frameProtocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", version)
	}

	f := &frame{
		Type:          frameType(header[1] >> 4),
		Flags:         frameFlags(header[1] & 0x0F),
		Serialization: header[2] >> 4,
		Compression:   header[2] & 0x0F,
	}

	// header size 以 4 字节为单位，跳过扩展头
	if extra := int(header[0]&0x0F)*4 - 4; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extra)); err != nil {
			return nil, fmt.Errorf("failed to read extended header: %w", err)
		}
	}

	if f.hasSequence() {
		if err := binary.Read(r, binary.BigEndian, &f.Sequence); err != nil {
			return nil, fmt.Errorf("failed to read sequence: %w", err)
		}
	}
	if f.Type == frameServerError {
		if err := binary.Read(r, binary.BigEndian, &f.ErrorCode); err != nil {
			return nil, fmt.Errorf("failed to read error code: %w", err)
		}
	}

	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return nil, fmt.Errorf("failed to read payload size: %w", err)
	}
	if size > 0 {
		f.Payload = make([]byte, size)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return nil, fmt.Errorf("failed to read payload (expected %d bytes): %w", size, err)
		}
	}
	return f, nil
}

func newFullClientFrame(payload []byte) *frame {
	return &frame{
		Type:          frameFullClientRequest,
		Flags:         flagNoSequence,
		Serialization: serializationJSON,
		Compression:   compressionGzip,
		Payload:       payload,
	}
}

// newAudioFrame 最后一包使用负序号标记结束。
func newAudioFrame(audio []byte, sequence int32, last bool) *frame {
	flags := flagPositiveSequence
	if last {
		flags = flagNegativeSequence
		sequence = -sequence
	}
	return &frame{
		Type:          frameAudioOnlyRequest,
		Flags:         flags,
		Serialization: serializationNone,
		Compression:   compressionGzip,
		Sequence:      sequence,
		Payload:       audio,
	}
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("gzip write failed: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gzip close failed: %w", err)
	}
	return buf.Bytes(), nil
}

func gunzipBytes(data []byte, compression uint8) ([]byte, error) {
	switch compression {
	case compressionNone:
		return data, nil
	case compressionGzip:
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader creation failed: %w", err)
		}
		defer reader.Close()
		return io.ReadAll(reader)
	default:
		return nil, fmt.Errorf("unsupported compression method: %d", compression)
	}
}
