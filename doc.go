// Package binfile provides random access to typed binary fields over byte
// sources that are either fully resident in memory or fetched on demand from
// a remote resource.
//
// Every typed accessor is a free function over the [ByteSource] capability,
// so decoding logic is shared by all storage mechanisms:
//
//	buf, err := binfile.NewBuffer(data)
//	if err != nil {
//	    return err
//	}
//	size, err := binfile.Uint32At(buf, 6, binfile.BigEndian)
//
// Remote resources are read through the [remote] subpackage, which caches
// fixed-size blocks and fetches only the byte ranges that are touched:
//
//	src, err := http.Open(ctx, "https://example.com/track.mp3")
//	if err != nil {
//	    return err
//	}
//	title, err := binfile.StringWithCharsetAt(src, 3, 30, "", nil)
//
// Local files can be memory-mapped with [OpenFile].
package binfile
