package wire

import "fmt"

// EncodeRequestFrame builds the full wire frame for an Rq body: a
// length byte H, H bytes of RqHeader, CryptoInfo, then the
// AES-CBC-encrypted, zero-padded body.
func EncodeRequestFrame(partnerID uint32, swVersion uint32, requestClientConf bool, rqBody []byte, key []byte, randf RandFunc) ([]byte, error) {
	padLen := pad(len(rqBody))
	padded := make([]byte, len(rqBody)+padLen)
	copy(padded, rqBody)

	iv, ciphertext, err := Encrypt(key, padded, randf)
	if err != nil {
		return nil, fmt.Errorf("wire: encode request: %w", err)
	}

	ci := CryptoInfo{PadLength: uint32(padLen)}
	copy(ci.IV[:], iv)
	ciBytes := ci.Marshal()

	hdr := RqHeader{
		PartnerID:         partnerID,
		CryptoInfoLen:     uint32(len(ciBytes)),
		RqLen:             uint32(len(ciphertext)),
		SWVersion:         swVersion,
		RequestClientConf: requestClientConf,
	}
	hdrBytes := hdr.Marshal()
	if len(hdrBytes) > 255 {
		return nil, fmt.Errorf("wire: header too large (%d bytes)", len(hdrBytes))
	}

	frame := make([]byte, 0, 1+len(hdrBytes)+len(ciBytes)+len(ciphertext))
	frame = append(frame, byte(len(hdrBytes)))
	frame = append(frame, hdrBytes...)
	frame = append(frame, ciBytes...)
	frame = append(frame, ciphertext...)
	return frame, nil
}

// DecodeResponseFrame reverses EncodeRequestFrame's response-side
// counterpart: parses RsHeader, CryptoInfo, decrypts the body, and
// trims the AES padding before decoding the Rs protobuf.
func DecodeResponseFrame(frame []byte, key []byte) (RsBody, error) {
	if len(frame) < 1 {
		return RsBody{}, fmt.Errorf("wire: empty frame")
	}
	h := int(frame[0])
	if len(frame) < 1+h {
		return RsBody{}, fmt.Errorf("wire: truncated header")
	}
	hdr, err := UnmarshalRsHeader(frame[1 : 1+h])
	if err != nil {
		return RsBody{}, fmt.Errorf("wire: bad RsHeader: %w", err)
	}

	rest := frame[1+h:]
	if len(rest) < int(hdr.CryptoInfoLen) {
		return RsBody{}, fmt.Errorf("wire: truncated CryptoInfo")
	}
	ci, err := UnmarshalCryptoInfo(rest[:hdr.CryptoInfoLen])
	if err != nil {
		return RsBody{}, fmt.Errorf("wire: bad CryptoInfo: %w", err)
	}

	ciphertext := rest[hdr.CryptoInfoLen:]
	if uint32(len(ciphertext)) < hdr.RsLen {
		return RsBody{}, fmt.Errorf("wire: truncated body")
	}
	ciphertext = ciphertext[:hdr.RsLen]

	plaintext, err := Decrypt(key, ci.IV[:], ciphertext)
	if err != nil {
		return RsBody{}, fmt.Errorf("wire: decrypt: %w", err)
	}
	if int(ci.PadLength) > len(plaintext) {
		return RsBody{}, fmt.Errorf("wire: bad pad length")
	}
	plaintext = plaintext[:len(plaintext)-int(ci.PadLength)]

	body, err := DecodeRs(plaintext)
	if err != nil {
		return RsBody{}, fmt.Errorf("wire: decode Rs: %w", err)
	}
	body.Status = hdr.Status
	return body, nil
}

// WorstCaseResponseSize returns the buffer size finalize_request should
// report to the host for the decoded response: the worst-case decoded
// response length given the negotiated maxDLAppData.
func WorstCaseResponseSize(maxDLAppData uint32) int {
	const rsHeaderBudget = 16
	const cryptoInfoBudget = 1 + IVSize + 4
	const rsBodyBudget = 64
	return 1 + rsHeaderBudget + cryptoInfoBudget + rsBodyBudget + int(maxDLAppData)
}
