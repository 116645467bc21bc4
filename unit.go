// SPDX-License-Identifier: GPL-3.0-or-later

package sctpcat

// Unit is a type not containing any value.
//
// Setup pipelines start from a [ConstFunc] and are invoked with Unit{}.
type Unit struct{}
