package main

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/saylorsolutions/pixlock/cmd/internal"
	"github.com/saylorsolutions/pixlock/pkg/filelock"
	"github.com/saylorsolutions/pixlock/pkg/pixcode"
	flag "github.com/spf13/pflag"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	switch os.Args[1] {
	case "encode":
		runEncode(os.Args[2:])
	case "decode":
		runDecode(os.Args[2:])
	case "wrap":
		runWrap(os.Args[2:])
	case "unwrap":
		runUnwrap(os.Args[2:])
	case "version":
		internal.Echo("pixlock %s", version)
	case "help", "-h", "--help":
		usage()
	default:
		usage()
		internal.Fatal("Unknown command %q", os.Args[1])
	}
}

func usage() {
	internal.Echo(`
pixlock encodes short messages as narrow cipher images, and wraps files into
encrypted envelopes keyed by a passphrase or a cipher-image.

USAGE:  pixlock COMMAND [FLAGS] ARGS

COMMANDS:
    encode TEXT         Encode TEXT as a cipher image PNG (see --out, --salted, --salt).
    decode IMAGE        Decode a cipher image PNG back to text (--salt for salted images).
    wrap FILE           Wrap FILE into an encrypted envelope (--key-image or passphrase prompt).
    unwrap FILE         Unwrap an envelope back to the original file contents.
    version             Print the pixlock version.

The salt of a salted image is NOT stored in the image. encode prints the salt
it used; keep it, or the image cannot be decoded.

Set ` + PassphraseEnvVar + ` to provide the passphrase non-interactively.
`)
}

func runEncode(args []string) {
	var (
		out    string
		salted bool
		salt   int64
	)
	flags := flag.NewFlagSet("encode", flag.ExitOnError)
	flags.StringVarP(&out, "out", "o", "cipher.png", "Output PNG path.")
	flags.BoolVarP(&salted, "salted", "s", false, "Salt the encoding with the current time, printing the salt used.")
	flags.Int64Var(&salt, "salt", 0, "Salt the encoding with an explicit salt value.")
	internal.Check(flags.Parse(args), "Error parsing flags")
	if flags.NArg() != 1 {
		internal.Fatal("encode expects exactly one TEXT argument")
	}
	text := flags.Arg(0)

	var (
		img *image.NRGBA
		err error
	)
	switch {
	case flags.Changed("salt"):
		img, err = pixcode.EncodeSalted(text, pixcode.Salt(salt))
		internal.Check(err, "Encoding failed")
		internal.Echo("Salt: %d (required for decoding)", salt)
	case salted:
		var used pixcode.Salt
		img, used, err = pixcode.EncodeSaltedNow(text)
		internal.Check(err, "Encoding failed")
		internal.Echo("Salt: %d (required for decoding, not stored in the image)", used)
	default:
		img, err = pixcode.Encode(text)
		internal.Check(err, "Encoding failed")
	}
	internal.Check(writePNG(out, img), "Failed to write image")
	internal.Echo("Wrote %s", out)
}

func runDecode(args []string) {
	var salt int64
	flags := flag.NewFlagSet("decode", flag.ExitOnError)
	flags.Int64Var(&salt, "salt", 0, "Salt the image was encoded with, for salted images.")
	internal.Check(flags.Parse(args), "Error parsing flags")
	if flags.NArg() != 1 {
		internal.Fatal("decode expects exactly one IMAGE argument")
	}

	img, err := readPNG(flags.Arg(0))
	internal.Check(err, "Failed to read image")

	var text string
	if flags.Changed("salt") {
		text, err = pixcode.DecodeSalted(img, pixcode.Salt(salt))
	} else {
		text, err = pixcode.Decode(img)
	}
	internal.Check(err, "Decoding failed")
	fmt.Println(text)
}

func runWrap(args []string) {
	var (
		out      string
		keyImage string
	)
	flags := flag.NewFlagSet("wrap", flag.ExitOnError)
	flags.StringVarP(&out, "out", "o", "", "Output envelope path, defaults to FILE.plk.")
	flags.StringVarP(&keyImage, "key-image", "k", "", "Use this cipher-image as key material instead of a passphrase.")
	internal.Check(flags.Parse(args), "Error parsing flags")
	if flags.NArg() != 1 {
		internal.Fatal("wrap expects exactly one FILE argument")
	}
	src := flags.Arg(0)
	if out == "" {
		out = src + ".plk"
	}

	locker, err := filelock.NewLocker()
	internal.Check(err, "Setup failed")
	km, cleanup := keyMaterial(keyImage, true)
	defer cleanup()

	internal.Check(locker.WrapFile(src, out, km), "Wrap failed")
	internal.Echo("Wrote %s", out)
}

func runUnwrap(args []string) {
	var (
		out      string
		keyImage string
	)
	flags := flag.NewFlagSet("unwrap", flag.ExitOnError)
	flags.StringVarP(&out, "out", "o", "", "Output file path, defaults to FILE.out.")
	flags.StringVarP(&keyImage, "key-image", "k", "", "The cipher-image the envelope was wrapped with.")
	internal.Check(flags.Parse(args), "Error parsing flags")
	if flags.NArg() != 1 {
		internal.Fatal("unwrap expects exactly one FILE argument")
	}
	src := flags.Arg(0)
	if out == "" {
		out = src + ".out"
	}

	// Peek at the header so the right kind of key material gets requested.
	data, err := os.ReadFile(src)
	internal.Check(err, "Failed to read envelope")
	var envelope filelock.Envelope
	internal.Check(envelope.UnmarshalBinary(data), "Not a pixlock envelope")
	if envelope.KeyMode() == filelock.KeyModeImage && keyImage == "" {
		internal.Fatal("This envelope was wrapped with a cipher-image, pass it with --key-image")
	}

	locker, err := filelock.NewLocker()
	internal.Check(err, "Setup failed")
	km, cleanup := keyMaterial(keyImage, false)
	defer cleanup()

	internal.Check(locker.UnwrapFile(src, out, km), "Unwrap failed")
	internal.Echo("Wrote %s", out)
}

// keyMaterial loads the key image when a path is given, and prompts for a
// passphrase otherwise. The cleanup function zeroes any passphrase bytes.
func keyMaterial(keyImage string, confirm bool) (filelock.KeyMaterial, func()) {
	if keyImage != "" {
		img, err := readPNG(keyImage)
		internal.Check(err, "Failed to read key image")
		return filelock.Image(img), func() {}
	}
	var (
		pass []byte
		err  error
	)
	if confirm {
		pass, err = getPassphraseWithConfirm("Passphrase: ", "Confirm passphrase: ")
	} else {
		pass, err = getPassphrase("Passphrase: ")
	}
	internal.Check(err, "Failed to read passphrase")
	return filelock.Password(pass), func() { zeroBytes(pass) }
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return png.Encode(f, img)
}

func readPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return png.Decode(f)
}
