package treecrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
)

// SIVEngine implements AES-SIV (RFC 5297), a deterministic authenticated
// cipher. Equal plaintexts under one key give equal ciphertexts, which is
// what deterministic filename encryption needs.
type SIVEngine struct {
	mac        cipher.Block // S2V/CMAC key
	ctr        cipher.Block // CTR key
	sub1, sub2 []byte       // CMAC subkeys
}

// SIVKeySize is the combined MAC and CTR key size
const SIVKeySize = 64

// NewSIVEngine creates an AES-SIV engine. The first half of key drives
// S2V, the second half CTR.
func NewSIVEngine(key []byte) (*SIVEngine, error) {
	if len(key) != SIVKeySize {
		return nil, fmt.Errorf("AES-SIV requires a %d-byte key, got %d bytes: %w", SIVKeySize, len(key), ErrInvalidKey)
	}

	mac, err := aes.NewCipher(key[:32])
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	ctr, err := aes.NewCipher(key[32:])
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	l := make([]byte, aes.BlockSize)
	mac.Encrypt(l, l)
	sub1 := gfDouble(l)
	sub2 := gfDouble(sub1)

	return &SIVEngine{mac: mac, ctr: ctr, sub1: sub1, sub2: sub2}, nil
}

// Seal returns siv || ciphertext
func (e *SIVEngine) Seal(plaintext []byte, ad ...[]byte) []byte {
	v := e.s2v(plaintext, ad)

	out := make([]byte, aes.BlockSize+len(plaintext))
	copy(out, v)
	e.xorKeyStream(v, out[aes.BlockSize:], plaintext)
	return out
}

// Open reverses Seal. ad must match what was sealed.
func (e *SIVEngine) Open(sealed []byte, ad ...[]byte) ([]byte, error) {
	if len(sealed) < aes.BlockSize {
		return nil, ErrAuthFailed
	}

	v := sealed[:aes.BlockSize]
	plaintext := make([]byte, len(sealed)-aes.BlockSize)
	e.xorKeyStream(v, plaintext, sealed[aes.BlockSize:])

	if subtle.ConstantTimeCompare(v, e.s2v(plaintext, ad)) != 1 {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// Overhead returns the SIV size (16 bytes)
func (e *SIVEngine) Overhead() int {
	return aes.BlockSize
}

func (e *SIVEngine) s2v(plaintext []byte, ad [][]byte) []byte {
	d := e.cmac(make([]byte, aes.BlockSize))

	for _, a := range ad {
		d = xorBlocks(gfDouble(d), e.cmac(a))
	}

	var t []byte
	if len(plaintext) >= aes.BlockSize {
		// xorend
		t = make([]byte, len(plaintext))
		copy(t, plaintext)
		tail := t[len(t)-aes.BlockSize:]
		subtle.XORBytes(tail, tail, d)
	} else {
		t = xorBlocks(gfDouble(d), padBlock(plaintext))
	}

	return e.cmac(t)
}

func (e *SIVEngine) cmac(data []byte) []byte {
	n := (len(data) + aes.BlockSize - 1) / aes.BlockSize
	if n == 0 {
		n = 1
	}

	var last []byte
	if len(data) > 0 && len(data)%aes.BlockSize == 0 {
		last = xorBlocks(data[(n-1)*aes.BlockSize:], e.sub1)
	} else {
		last = xorBlocks(padBlock(data[(n-1)*aes.BlockSize:]), e.sub2)
	}

	mac := make([]byte, aes.BlockSize)
	for i := 0; i < n-1; i++ {
		subtle.XORBytes(mac, mac, data[i*aes.BlockSize:(i+1)*aes.BlockSize])
		e.mac.Encrypt(mac, mac)
	}
	subtle.XORBytes(mac, mac, last)
	e.mac.Encrypt(mac, mac)
	return mac
}

func (e *SIVEngine) xorKeyStream(v, dst, src []byte) {
	// RFC 5297 2.6: clear the 31st and 63rd bits from the right
	iv := make([]byte, aes.BlockSize)
	copy(iv, v)
	iv[8] &= 0x7f
	iv[12] &= 0x7f
	cipher.NewCTR(e.ctr, iv).XORKeyStream(dst, src)
}

// gfDouble multiplies a block by x in GF(2^128)
func gfDouble(b []byte) []byte {
	hi := binary.BigEndian.Uint64(b[:8])
	lo := binary.BigEndian.Uint64(b[8:])

	out := make([]byte, aes.BlockSize)
	binary.BigEndian.PutUint64(out[:8], hi<<1|lo>>63)
	binary.BigEndian.PutUint64(out[8:], lo<<1)
	if hi>>63 != 0 {
		out[15] ^= 0x87
	}
	return out
}

// padBlock applies 10* padding to a partial block
func padBlock(b []byte) []byte {
	out := make([]byte, aes.BlockSize)
	copy(out, b)
	out[len(b)] = 0x80
	return out
}

func xorBlocks(a, b []byte) []byte {
	out := make([]byte, aes.BlockSize)
	subtle.XORBytes(out, a, b)
	return out
}
