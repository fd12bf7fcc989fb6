/*
Package pixcode maps short alphabetic messages onto narrow raster images, and back.

# How it works:

Every cipher image is exactly 9 pixels wide. Each character maps to one pixel
through a fixed substitution table over the 52 ASCII letters (case-sensitive),
filling rows left to right, top to bottom. Slack pixels at the end of the last
row carry a reserved pad color, so decoding recovers exactly the message that
was encoded. Encode and Decode are pure functions, and the round trip is the
identity for every message drawn from the alphabet.

The salted variant screens each pixel with a keystream derived from a
caller-supplied salt, normally a coarse wall-clock timestamp. The same message
encoded under two different salts produces two different images, and decoding
requires the same salt that encoded it.

# General guidelines:
  - The salt is never embedded in a salted image. If you don't keep the salt
    alongside the image, the image cannot be decoded. EncodeSaltedNow returns
    the salt it sampled for exactly this reason.
  - This is a novelty substitution cipher, not encryption. Anyone with this
    package can decode an unsalted image, and the salted variant only resists
    casual inspection. Use the filelock package when you need confidentiality.
  - Images should be persisted in a lossless format such as PNG. Lossy
    compression perturbs pixel values and makes images undecodable.
*/
package pixcode
