/* NFD-Go - An NDN Forwarding Daemon
 *
 * Copyright (C) 2024-2026 NFD-Go authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package defn

import (
	"errors"
	"net"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// URIType represents the type of the URI.
type URIType int

// ErrNotCanonical indicates that a URI could not be canonized.
var ErrNotCanonical = errors.New("URI could not be canonized")

const (
	unknownURI URIType = iota
	internalURI
	nullURI
	udpURI
	tcpURI
	unixURI
)

// URI represents a URI for a face.
type URI struct {
	uriType URIType
	scheme  string
	path    string
	port    uint16
}

// MakeInternalFaceURI constructs an internal face URI.
func MakeInternalFaceURI() *URI {
	return &URI{
		uriType: internalURI,
		scheme:  "internal",
	}
}

// MakeNullFaceURI constructs a null face URI.
func MakeNullFaceURI() *URI {
	return &URI{
		uriType: nullURI,
		scheme:  "null",
	}
}

// MakeUDPFaceURI constructs a URI for a UDP face.
func MakeUDPFaceURI(ipVersion int, host string, port uint16) *URI {
	uri := &URI{
		uriType: udpURI,
		scheme:  "udp" + strconv.Itoa(ipVersion),
		path:    host,
		port:    port,
	}
	uri.Canonize()
	return uri
}

// MakeTCPFaceURI constructs a URI for a TCP face.
func MakeTCPFaceURI(ipVersion int, host string, port uint16) *URI {
	uri := &URI{
		uriType: tcpURI,
		scheme:  "tcp" + strconv.Itoa(ipVersion),
		path:    host,
		port:    port,
	}
	uri.Canonize()
	return uri
}

// MakeUnixFaceURI constructs a URI for a Unix face.
func MakeUnixFaceURI(path string) *URI {
	uri := &URI{
		uriType: unixURI,
		scheme:  "unix",
		path:    path,
	}
	uri.Canonize()
	return uri
}

// DecodeURIString decodes a URI from its string representation.
func DecodeURIString(str string) *URI {
	ret := &URI{
		uriType: unknownURI,
		scheme:  "unknown",
	}

	uri, err := url.Parse(str)
	if err != nil {
		return ret
	}

	decodeHostPort := func(uriType URIType) {
		ret.uriType = uriType
		ret.scheme = uri.Scheme
		ret.path = uri.Hostname()
		if uri.Port() != "" {
			port, _ := strconv.ParseUint(uri.Port(), 10, 16)
			ret.port = uint16(port)
		} else {
			ret.port = uint16(6363) // default NDN port
		}
	}

	switch uri.Scheme {
	case "internal":
		ret.uriType = internalURI
		ret.scheme = uri.Scheme
	case "null":
		ret.uriType = nullURI
		ret.scheme = uri.Scheme
	case "udp", "udp4", "udp6":
		decodeHostPort(udpURI)
	case "tcp", "tcp4", "tcp6":
		decodeHostPort(tcpURI)
	case "unix":
		ret.uriType = unixURI
		ret.scheme = uri.Scheme
		ret.path = uri.Path
	}

	ret.Canonize()

	return ret
}

// URIType returns the type of the face URI.
func (u *URI) URIType() URIType {
	return u.uriType
}

// Scheme returns the scheme of the face URI.
func (u *URI) Scheme() string {
	return u.scheme
}

// Path returns the path of the face URI.
func (u *URI) Path() string {
	return u.path
}

// Port returns the port of the face URI.
func (u *URI) Port() uint16 {
	return u.port
}

// IsCanonical returns whether the face URI is canonical.
func (u *URI) IsCanonical() bool {
	switch u.uriType {
	case internalURI:
		return u.scheme == "internal" && u.path == "" && u.port == 0
	case nullURI:
		return u.scheme == "null" && u.path == "" && u.port == 0
	case udpURI, tcpURI:
		ip := net.ParseIP(u.path)
		if ip == nil || u.port == 0 {
			return false
		}
		// To16() alone is insufficient since the Go net library treats
		// IPv4 addresses as valid IPv6 addresses
		isIPv4 := ip.To4() != nil
		if u.uriType == udpURI {
			return (u.scheme == "udp4" && isIPv4) || (u.scheme == "udp6" && ip.To16() != nil && !isIPv4)
		}
		return (u.scheme == "tcp4" && isIPv4) || (u.scheme == "tcp6" && ip.To16() != nil && !isIPv4)
	case unixURI:
		// Do not check whether the file exists, since that may fail due to
		// lack of privilege in testing environments
		return u.scheme == "unix" && u.path != "" && u.port == 0
	default:
		return false
	}
}

// Canonize attempts to canonize the URI, if not already canonical.
func (u *URI) Canonize() error {
	switch u.uriType {
	case internalURI, nullURI:
		// Nothing to do
	case udpURI, tcpURI:
		ip := net.ParseIP(strings.Trim(u.path, "[]"))
		if ip == nil {
			resolvedIPs, err := net.LookupHost(u.path)
			if err != nil || len(resolvedIPs) == 0 {
				return ErrNotCanonical
			}
			ip = net.ParseIP(resolvedIPs[0])
			if ip == nil {
				return ErrNotCanonical
			}
		}

		version := "6"
		if ip.To4() != nil {
			version = "4"
		} else if ip.To16() == nil {
			return ErrNotCanonical
		}
		if u.uriType == udpURI {
			u.scheme = "udp" + version
		} else {
			u.scheme = "tcp" + version
		}
		u.path = ip.String()
	case unixURI:
		u.scheme = "unix"
		testPath := "/" + u.path
		if runtime.GOOS == "windows" {
			testPath = u.path
		}
		fileInfo, err := os.Stat(testPath)
		if err != nil && !os.IsNotExist(err) {
			return ErrNotCanonical
		} else if err == nil && fileInfo.IsDir() {
			return ErrNotCanonical
		}
		u.port = 0
	default:
		return ErrNotCanonical
	}

	return nil
}

// Scope returns the scope of the URI.
func (u *URI) Scope() Scope {
	if !u.IsCanonical() {
		return Unknown
	}

	switch u.uriType {
	case nullURI:
		return NonLocal
	case udpURI, tcpURI:
		if net.ParseIP(u.path).IsLoopback() {
			return Local
		}
		return NonLocal
	case unixURI:
		return Local
	}

	// Only valid type left is internal, which is by definition local
	return Local
}

func (u *URI) String() string {
	switch u.uriType {
	case internalURI:
		return "internal://"
	case nullURI:
		return "null://"
	case udpURI, tcpURI:
		return u.scheme + "://" + net.JoinHostPort(u.path, strconv.FormatUint(uint64(u.port), 10))
	case unixURI:
		return u.scheme + "://" + u.path
	default:
		return "unknown://"
	}
}
