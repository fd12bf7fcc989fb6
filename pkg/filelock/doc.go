/*
Package filelock wraps arbitrary file payloads into authenticated, encrypted
envelopes keyed by either a passphrase or a cipher-image.

# How it works:

A Locker derives an AES key from the caller's key material. Passphrases are
stretched with scrypt under a fresh random salt; the salt and the scrypt tuning
parameters are recorded in the envelope header so the same key can be derived
again at unwrap time. Cipher-images need no stored salt: the image pixels are
hashed directly into the key, and the image itself is the secret the holder
must safeguard.

The payload is sealed with AES-256-GCM under a fresh random nonce, with the
envelope header bound in as additional authenticated data. Unwrap re-derives
the key from the stored header fields and the supplied key material, then
verifies and decrypts. Any tampering with the header or ciphertext, and any
wrong key material, fails verification; no partial plaintext is ever returned.

# General guidelines:
  - Key derivation parameters are bound into each envelope, so a Locker tuned
    differently can still unwrap older envelopes.
  - AES-GCM authenticates at most about 64GB per envelope. Split very large
    payloads across multiple wrap calls if you approach that.
  - How a passphrase or cipher-image reaches the party doing the unwrapping is
    deliberately out of scope. This package provides no key exchange.
*/
package filelock
