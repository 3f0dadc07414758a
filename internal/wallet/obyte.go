package wallet

import (
	"crypto/sha256"
	"encoding/base32"
)

// ObyteValidator accepts Obyte addresses: 32 base32 characters encoding 160
// bits, of which 32 are checksum bits interleaved into 128 data bits. The
// checksum byte positions and interleave offsets follow the ledger's address
// scheme (offsets derived from the digits of pi).
type ObyteValidator struct{}

func NewObyteValidator() ObyteValidator { return ObyteValidator{} }

func (ObyteValidator) Chain() string { return "obyte" }

func (ObyteValidator) IsWalletAddress(address string) bool {
	if len(address) != 32 {
		return false
	}
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(address)
	if err != nil || len(raw) != 20 {
		return false
	}
	clean, checksum := separateChecksumBits(bytesToBits(raw))
	return checksumOf(bitsToBytes(clean)) == [4]byte(bitsToBytes(checksum))
}

func init() {
	MustRegister(NewObyteValidator())
}

var checksumOffsets = calcChecksumOffsets()

// calcChecksumOffsets walks the digits of pi, accumulating positions until 32
// checksum offsets inside the 160-bit address are produced.
func calcChecksumOffsets() []int {
	const pi = "14159265358979323846264338327950288419716939937510"
	offsets := make([]int, 0, 32)
	offset := 0
	for i := 0; i < len(pi); i++ {
		relative := int(pi[i] - '0')
		if relative == 0 {
			continue
		}
		offset += relative
		if offset >= 160 {
			break
		}
		offsets = append(offsets, offset)
	}
	if len(offsets) != 32 {
		panic("wallet: wrong number of checksum offsets")
	}
	return offsets
}

func separateChecksumBits(bits []bool) (clean, checksum []bool) {
	isChecksum := make(map[int]bool, len(checksumOffsets))
	for _, off := range checksumOffsets {
		isChecksum[off] = true
	}
	clean = make([]bool, 0, len(bits)-len(checksumOffsets))
	checksum = make([]bool, 0, len(checksumOffsets))
	for i, bit := range bits {
		if isChecksum[i] {
			checksum = append(checksum, bit)
		} else {
			clean = append(clean, bit)
		}
	}
	return clean, checksum
}

// checksumOf picks four bytes of the sha256 of the clean data, matching the
// ledger's checksum byte selection.
func checksumOf(data []byte) [4]byte {
	full := sha256.Sum256(data)
	return [4]byte{full[5], full[13], full[21], full[29]}
}

func bytesToBits(raw []byte) []bool {
	bits := make([]bool, len(raw)*8)
	for i, b := range raw {
		for j := 0; j < 8; j++ {
			bits[i*8+j] = b&(1<<(7-j)) != 0
		}
	}
	return bits
}

func bitsToBytes(bits []bool) []byte {
	raw := make([]byte, len(bits)/8)
	for i := range raw {
		for j := 0; j < 8; j++ {
			if bits[i*8+j] {
				raw[i] |= 1 << (7 - j)
			}
		}
	}
	return raw
}
