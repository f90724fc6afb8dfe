// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// xiwrap runs a command under bubblewrap, with the sandbox described by
// directive modules and directive flags instead of raw bwrap arguments.
//
// Usage:
//
//	xiwrap [OPTION]... -- COMMAND [ARG]...
//
// Every "--NAME ARG..." group before the bare "--" is either a driver
// option (see --help) or a directive, exactly as it would be written in a
// module file:
//
//	xiwrap --include host-os --include wayland \
//	    --dbus-session-talk org.freedesktop.Notifications -- firefox
//
// Bus directives start a filtering xdg-dbus-proxy per bus before the
// sandbox. --debug prints the helper command lines instead of running
// them; --check runs the pre-flight checks.
//
// Exit status is the command's own, 125 if xiwrap failed before the
// command started, or 2 for an invalid command line.
package main
