package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// Profile blob layout, version 2:
//
//	u8 version | u16 len + subject | u16 len + email | u16 len + display name |
//	u16 len + password hash
//
// Lengths are big-endian byte counts. The refresh fingerprint is kept outside
// the blob so it can be swapped atomically without rewriting the profile.
const profileFormatVersion = 2

const maxProfileField = 0xFFFF

var errProfileTooLong = errors.New("profile field too long")

// EncodeProfile serializes the profile fields of rec.
func EncodeProfile(rec UserRecord) ([]byte, error) {
	fields := [...]string{rec.SubjectID, rec.Email, rec.DisplayName, rec.PasswordHash}

	size := 1
	for _, field := range fields {
		if len(field) > maxProfileField {
			return nil, errProfileTooLong
		}
		size += 2 + len(field)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, profileFormatVersion)
	for _, field := range fields {
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(field)))
		buf = append(buf, field...)
	}
	return buf, nil
}

// DecodeProfile parses a blob written by EncodeProfile. RefreshTokenHash is
// left empty.
func DecodeProfile(data []byte) (UserRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return UserRecord{}, err
	}
	if version != profileFormatVersion {
		return UserRecord{}, errors.New("invalid profile version")
	}

	var fields [4]string
	for i := range fields {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return UserRecord{}, err
		}
		if int(n) > reader.Len() {
			return UserRecord{}, io.ErrUnexpectedEOF
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(reader, b); err != nil {
			return UserRecord{}, err
		}
		fields[i] = string(b)
	}
	if reader.Len() != 0 {
		return UserRecord{}, errors.New("trailing profile bytes")
	}

	return UserRecord{
		SubjectID:    fields[0],
		Email:        fields[1],
		DisplayName:  fields[2],
		PasswordHash: fields[3],
	}, nil
}
