// Copyright (c) 2026 UAMP Authors. All rights reserved.
// Use of this source code is governed by the UAMP License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

package protocol

import (
	"github.com/nishisan-dev/uamp/internal/protoerr"
	"github.com/nishisan-dev/uamp/internal/wire"
)

const handshakeWireSize = 4 + 1 + 4 // tag + version bitmap + feature bitmap
const versionChoiceWireSize = 1

// WriteHandshake writes the 9-byte handshake payload.
func WriteHandshake(buf *wire.Buffer, hs Handshake) error {
	buf.BeginWrite(handshakeWireSize)
	if err := buf.WriteRaw(hs.Tag[:]); err != nil {
		return err
	}
	if err := buf.Write8(hs.VersionBitmap); err != nil {
		return err
	}
	if err := buf.Write32(hs.FeatureBitmap); err != nil {
		return err
	}
	return buf.Flush()
}

// ReadHandshake reads the 9-byte handshake payload from the peer.
func ReadHandshake(buf *wire.Buffer) (Handshake, error) {
	buf.BeginRead(handshakeWireSize)
	raw, err := buf.ReadRaw(4)
	if err != nil {
		return Handshake{}, err
	}
	var tag Tag
	copy(tag[:], raw)

	version, err := buf.Read8()
	if err != nil {
		return Handshake{}, err
	}
	features, err := buf.Read32()
	if err != nil {
		return Handshake{}, err
	}
	return Handshake{Tag: tag, VersionBitmap: version, FeatureBitmap: features}, nil
}

// WriteVersionChoice writes the one-byte version-choice conclusion of
// the handshake (VersionChoiceReject, or a bitmap with exactly one
// bit set).
func WriteVersionChoice(buf *wire.Buffer, choice byte) error {
	buf.BeginWrite(versionChoiceWireSize)
	if err := buf.Write8(choice); err != nil {
		return err
	}
	return buf.Flush()
}

// ReadVersionChoice reads the peer's version-choice byte.
func ReadVersionChoice(buf *wire.Buffer) (byte, error) {
	buf.BeginRead(versionChoiceWireSize)
	return buf.Read8()
}

func classifyTagMismatch(self, peer Tag) protoerr.Kind {
	switch {
	case self == TagUAMP && peer == TagMVISP:
		return protoerr.UAMPClientMVISPServer
	case self == TagMVISP && peer == TagUAMP:
		return protoerr.MVISPClientUAMPServer
	default:
		return protoerr.ServerUnknownHandshake
	}
}

// NegotiateClient runs the client's half of the handshake: it writes
// its own tag/version/features, reads the server's, applies the
// client-only asymmetric feature rule, and exchanges the concluding
// version-choice byte. On success it returns the negotiated Features.
func NegotiateClient(buf *wire.Buffer, tag Tag, features Features) (Features, error) {
	local := Handshake{Tag: tag, VersionBitmap: VersionBit, FeatureBitmap: features.Bitmap()}
	if err := WriteHandshake(buf, local); err != nil {
		return Features{}, err
	}

	peer, err := ReadHandshake(buf)
	if err != nil {
		return Features{}, err
	}

	if peer.Tag != tag {
		kind := classifyTagMismatch(tag, peer.Tag)
		_ = WriteVersionChoice(buf, VersionChoiceReject)
		return Features{}, protoerr.New(kind)
	}

	shared := local.VersionBitmap & peer.VersionBitmap
	if shared == 0 {
		_ = WriteVersionChoice(buf, VersionChoiceReject)
		return Features{}, protoerr.New(protoerr.NoSharedVersion)
	}

	peerFeatures := FromBitmap(peer.FeatureBitmap)
	if peerFeatures.ThreeD && !features.ThreeD {
		_ = WriteVersionChoice(buf, VersionChoiceReject)
		return Features{}, protoerr.New(protoerr.ThreeDClientMismatch)
	}
	if peerFeatures.AppearDisappear && !features.AppearDisappear {
		_ = WriteVersionChoice(buf, VersionChoiceReject)
		return Features{}, protoerr.New(protoerr.AddRemoveUnsupported)
	}

	chosen := chooseVersion(shared)
	if err := WriteVersionChoice(buf, chosen); err != nil {
		return Features{}, err
	}
	peerChoice, err := ReadVersionChoice(buf)
	if err != nil {
		return Features{}, err
	}
	if peerChoice == VersionChoiceReject {
		return Features{}, protoerr.New(protoerr.ServerRejectedHandshake)
	}
	if peerChoice != chosen {
		return Features{}, protoerr.New(protoerr.ServerClientVersionDisagree)
	}

	return peerFeatures, nil
}

// NegotiateServer runs the server's half of the handshake. The server
// accepts any subset of its own advertised features from the client,
// so the negotiated Features returned are simply the client's
// advertised set intersected with the server's own (the client is
// never asked to drop features the server doesn't support either).
func NegotiateServer(buf *wire.Buffer, tag Tag, features Features) (Features, error) {
	peer, err := ReadHandshake(buf)
	if err != nil {
		return Features{}, err
	}

	local := Handshake{Tag: tag, VersionBitmap: VersionBit, FeatureBitmap: features.Bitmap()}
	if peer.Tag != tag {
		kind := classifyTagMismatch(tag, peer.Tag)
		_ = WriteHandshake(buf, local)
		_ = WriteVersionChoice(buf, VersionChoiceReject)
		return Features{}, protoerr.New(kind)
	}
	if err := WriteHandshake(buf, local); err != nil {
		return Features{}, err
	}

	shared := local.VersionBitmap & peer.VersionBitmap
	if shared == 0 {
		_ = WriteVersionChoice(buf, VersionChoiceReject)
		return Features{}, protoerr.New(protoerr.NoSharedVersion)
	}

	peerFeatures := FromBitmap(peer.FeatureBitmap)
	negotiated := Features{
		ThreeD:          peerFeatures.ThreeD && features.ThreeD,
		AppearDisappear: peerFeatures.AppearDisappear && features.AppearDisappear,
	}

	chosen := chooseVersion(shared)
	if err := WriteVersionChoice(buf, chosen); err != nil {
		return Features{}, err
	}
	peerChoice, err := ReadVersionChoice(buf)
	if err != nil {
		return Features{}, err
	}
	if peerChoice == VersionChoiceReject {
		return Features{}, protoerr.New(protoerr.ServerRejectedHandshake)
	}
	if peerChoice != chosen {
		return Features{}, protoerr.New(protoerr.ServerClientVersionDisagree)
	}

	return negotiated, nil
}

// chooseVersion picks the single bit to advertise as VERSION_CHOICE
// out of a shared bitmap. Only VersionBit is currently defined.
func chooseVersion(shared byte) byte {
	if shared&VersionBit != 0 {
		return VersionBit
	}
	return VersionChoiceReject
}
