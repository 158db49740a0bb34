// Package microfocus reads Micro Focus "file with header" (DAT) data files, the
// record-per-row format produced by legacy COBOL programs.
//
// The file starts with a 128-byte system header. Each record follows with a 2-byte
// header (4 bytes when the maximum record length is 4095 or more) whose top nibble is the
// record type and whose remaining bits are the body length. Records are padded with NUL
// bytes. Bodies carry no type information; a Layout names and decodes their columns.
package microfocus
