// Package treecrypt encrypts and decrypts a file or directory tree in place
// on any absfs.FileSystem.
//
// # Overview
//
// Every file below the target is sealed with an AEAD cipher and renamed to
// an encrypted form of its own name. Directories keep their names unless
// Config.EncryptDirNames is set. The top-level target directory is never
// renamed, so Encrypt on "/project" returns "/project".
//
// With compression, each directory is packed into a zip archive after its
// children have been sealed, and the archive is sealed in turn. The target
// collapses into a single opaque file and Decrypt restores the tree by
// unpacking each archive as it is found.
//
// # Basic Usage
//
//	fs, _ := memfs.NewFS()
//	key, _ := treecrypt.GenerateKey()
//
//	tc, err := treecrypt.New(fs, key, treecrypt.DefaultConfig())
//	if err != nil {
//	    panic(err)
//	}
//
//	sealed, err := tc.Encrypt("/project", true)
//	// ...
//	restored, err := tc.Decrypt(sealed)
//
// # Supported Cipher Suites
//
//   - AES-256-GCM (default)
//   - ChaCha20-Poly1305
//
// Each file gets its own content key, derived with HKDF-SHA256 from the
// master key and a random salt stored in the file header.
//
// # Filename Encryption
//
//   - Random: a fresh nonce per name, so equal names encrypt differently
//   - Deterministic: AES-SIV, equal names encrypt equally
//   - None: names are left as they are
//
// Encoded names use unpadded URL-safe base64 and never contain a path
// separator or a dot, unless PreserveExtensions keeps the extension.
//
// # File Format
//
// Sealed files use the following format:
//   - Magic bytes (4 bytes): "TCRY" (0x59524354)
//   - Version (1 byte): File format version
//   - Cipher suite (1 byte): Identifies the encryption algorithm
//   - Salt size (2 bytes) and salt
//   - Nonce size (2 bytes) and nonce
//   - Ciphertext (variable): Encrypted data + authentication tag
//
// The header bytes are authenticated as associated data.
//
// # Failure Behavior
//
// A file is only removed after its transformed replacement has been fully
// written, so a wrong key leaves the tree untouched. There is no rollback:
// an error aborts the walk and nodes already transformed stay transformed.
package treecrypt
