package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Reed-Solomon codec over GF(2^8) for FX.25 codeblocks.
 *
 * Description:	Berlekamp-Massey decoder and the matching systematic
 *		encoder, in the lineage of Phil Karn's widely used
 *		implementation.  FX.25 always uses 8 bit symbols and a
 *		255 byte block; the three codecs differ only in the
 *		number of check symbols (16, 32 or 64).
 *
 *---------------------------------------------------------------*/

import "fmt"

type rs struct {
	mm     uint   // Bits per symbol.
	nn     int    // Symbols per block, (1 << mm) - 1.
	alphaTo []byte // Index to polynomial form conversion table.
	indexOf []byte // Polynomial to index form conversion table.
	genpoly []byte // Generator polynomial, index form.
	fcr     int    // First consecutive root, index form.
	prim    int    // Primitive element, index form.
	iprim   int    // prim-th root of 1, index form.
	nroots  int    // Number of generator roots = number of check symbols.
}

// a0 in index form represents zero.
func (r *rs) a0() byte {
	return byte(r.nn)
}

// modnn reduces x modulo nn without a divide.
func (r *rs) modnn(x int) int {
	for x >= r.nn {
		x -= r.nn
		x = (x >> r.mm) + (x & r.nn)
	}
	return x
}

/*
 * Initialize a Reed-Solomon codec.
 *   symsize = symbol size in bits, always 8 for this application.
 *   gfpoly  = field generator polynomial coefficients.
 *   fcr     = first root of the RS code generator polynomial, index form.
 *   prim    = primitive element to generate polynomial roots.
 *   nroots  = generator polynomial degree, i.e. number of check symbols.
 */
func newRS(symsize, gfpoly, fcr, prim, nroots uint) (*rs, error) {
	if symsize > 8 {
		return nil, fmt.Errorf("rs: symbol size %d needs the int version", symsize)
	}
	if fcr >= 1<<symsize {
		return nil, fmt.Errorf("rs: fcr %d out of range", fcr)
	}
	if prim == 0 || prim >= 1<<symsize {
		return nil, fmt.Errorf("rs: prim %d out of range", prim)
	}
	if nroots >= 1<<symsize {
		return nil, fmt.Errorf("rs: cannot have more roots than symbol values")
	}

	var r = &rs{
		mm:   symsize,
		nn:   (1 << symsize) - 1,
		fcr:  int(fcr),
		prim: int(prim),
		nroots: int(nroots),
	}
	r.alphaTo = make([]byte, r.nn+1)
	r.indexOf = make([]byte, r.nn+1)

	// Generate the Galois field lookup tables.
	r.indexOf[0] = r.a0() // log(zero) = -inf.
	r.alphaTo[r.nn] = 0   // alpha**-inf = 0.
	var sr = 1
	for i := 0; i < r.nn; i++ {
		r.indexOf[sr] = byte(i)
		r.alphaTo[i] = byte(sr)
		sr <<= 1
		if sr&(1<<symsize) != 0 {
			sr ^= int(gfpoly)
		}
		sr &= r.nn
	}
	if sr != 1 {
		return nil, fmt.Errorf("rs: field generator polynomial is not primitive")
	}

	// Find prim-th root of 1, used in decoding.
	var iprim = 1
	for iprim%int(prim) != 0 {
		iprim += r.nn
	}
	r.iprim = iprim / int(prim)

	// Form the code generator polynomial from its roots.
	r.genpoly = make([]byte, nroots+1)
	r.genpoly[0] = 1
	for i, root := 0, int(fcr)*int(prim); i < int(nroots); i, root = i+1, root+int(prim) {
		r.genpoly[i+1] = 1

		// Multiply genpoly by alpha**(root + x).
		for j := i; j > 0; j-- {
			if r.genpoly[j] != 0 {
				r.genpoly[j] = r.genpoly[j-1] ^ r.alphaTo[r.modnn(int(r.indexOf[r.genpoly[j]])+root)]
			} else {
				r.genpoly[j] = r.genpoly[j-1]
			}
		}
		// genpoly[0] can never be zero.
		r.genpoly[0] = r.alphaTo[r.modnn(int(r.indexOf[r.genpoly[0]])+root)]
	}
	// Convert to index form for quicker encoding.
	for i := 0; i <= int(nroots); i++ {
		r.genpoly[i] = r.indexOf[r.genpoly[i]]
	}

	return r, nil
}

/*
 * encode computes the check symbols for data, which must be exactly
 * nn - nroots bytes, and writes them into parity, which must be nroots
 * bytes.
 */
func (r *rs) encode(data, parity []byte) {
	for i := range parity {
		parity[i] = 0
	}

	for i := 0; i < r.nn-r.nroots; i++ {
		var feedback = r.indexOf[data[i]^parity[0]]
		if feedback != r.a0() {
			for j := 1; j < r.nroots; j++ {
				parity[j] ^= r.alphaTo[r.modnn(int(feedback)+int(r.genpoly[r.nroots-j]))]
			}
		}
		copy(parity, parity[1:])
		if feedback != r.a0() {
			parity[r.nroots-1] = r.alphaTo[r.modnn(int(feedback)+int(r.genpoly[0]))]
		} else {
			parity[r.nroots-1] = 0
		}
	}
}

/*
 * decode corrects data, a full nn byte codeword, in place.
 *
 * Returns the number of symbols corrected, with their positions
 * copied into the start of errLocs if it is non-nil, or -1 if the codeword is
 * uncorrectable.
 */
func (r *rs) decode(data []byte, errLocs []int) int {
	var nroots = r.nroots
	var a0 = r.a0()

	/* Form the syndromes: evaluate data(x) at the roots of g(x). */
	var s = make([]byte, nroots)
	for i := range s {
		s[i] = data[0]
	}
	for j := 1; j < r.nn; j++ {
		for i := 0; i < nroots; i++ {
			if s[i] == 0 {
				s[i] = data[j]
			} else {
				s[i] = data[j] ^ r.alphaTo[r.modnn(int(r.indexOf[s[i]])+(r.fcr+i)*r.prim)]
			}
		}
	}

	/* Convert syndromes to index form, checking for the nonzero condition. */
	var synError byte
	for i := 0; i < nroots; i++ {
		synError |= s[i]
		s[i] = r.indexOf[s[i]]
	}

	if synError == 0 {
		// The syndrome is zero: data is a codeword, nothing to fix.
		return 0
	}

	var lambda = make([]byte, nroots+1) // Error locator polynomial.
	lambda[0] = 1

	var b = make([]byte, nroots+1)
	for i := 0; i <= nroots; i++ {
		b[i] = r.indexOf[lambda[i]]
	}

	/*
	 * Berlekamp-Massey algorithm to determine the error locator
	 * polynomial.
	 */
	var t = make([]byte, nroots+1)
	var el = 0
	for step := 1; step <= nroots; step++ {
		// Compute discrepancy at this step in polynomial form.
		var discr byte
		for i := 0; i < step; i++ {
			if lambda[i] != 0 && s[step-i-1] != a0 {
				discr ^= r.alphaTo[r.modnn(int(r.indexOf[lambda[i]])+int(s[step-i-1]))]
			}
		}
		var discrIdx = r.indexOf[discr]
		if discrIdx == a0 {
			// B(x) <-- x*B(x)
			copy(b[1:], b[:nroots])
			b[0] = a0
		} else {
			// T(x) <-- lambda(x) - discr*x*b(x)
			t[0] = lambda[0]
			for i := 0; i < nroots; i++ {
				if b[i] != a0 {
					t[i+1] = lambda[i+1] ^ r.alphaTo[r.modnn(int(discrIdx)+int(b[i]))]
				} else {
					t[i+1] = lambda[i+1]
				}
			}
			if 2*el <= step-1 {
				el = step - el
				// B(x) <-- inv(discr) * lambda(x)
				for i := 0; i <= nroots; i++ {
					if lambda[i] == 0 {
						b[i] = a0
					} else {
						b[i] = byte(r.modnn(int(r.indexOf[lambda[i]]) - int(discrIdx) + r.nn))
					}
				}
			} else {
				// B(x) <-- x*B(x)
				copy(b[1:], b[:nroots])
				b[0] = a0
			}
			copy(lambda, t)
		}
	}

	/* Convert lambda to index form and compute deg(lambda(x)). */
	var degLambda = 0
	for i := 0; i <= nroots; i++ {
		lambda[i] = r.indexOf[lambda[i]]
		if lambda[i] != a0 {
			degLambda = i
		}
	}

	/* Find the roots of lambda(x) by Chien search. */
	var reg = make([]byte, nroots+1)
	copy(reg[1:], lambda[1:])
	var root = make([]int, nroots)
	var loc = make([]int, nroots)
	var count = 0
	for i, k := 1, r.iprim-1; i <= r.nn; i, k = i+1, r.modnn(k+r.iprim) {
		var q byte = 1 // lambda[0] is always 1.
		for j := degLambda; j > 0; j-- {
			if reg[j] != a0 {
				reg[j] = byte(r.modnn(int(reg[j]) + j))
				q ^= r.alphaTo[reg[j]]
			}
		}
		if q != 0 {
			continue // Not a root.
		}
		// Store the root in index form and the error location.
		root[count] = i
		loc[count] = k
		count++
		if count == degLambda {
			// All possible roots found; stop the search.
			break
		}
	}
	if degLambda != count {
		// deg(lambda) unequal to number of roots means an
		// uncorrectable error was detected.
		return -1
	}

	/*
	 * Compute the error evaluator polynomial
	 * omega(x) = s(x)*lambda(x) modulo x**nroots, in index form,
	 * and find deg(omega).
	 */
	var omega = make([]byte, nroots+1)
	var degOmega = 0
	for i := 0; i < nroots; i++ {
		var tmp byte
		var j = i
		if degLambda < i {
			j = degLambda
		}
		for ; j >= 0; j-- {
			if s[i-j] != a0 && lambda[j] != a0 {
				tmp ^= r.alphaTo[r.modnn(int(s[i-j])+int(lambda[j]))]
			}
		}
		if tmp != 0 {
			degOmega = i
		}
		omega[i] = r.indexOf[tmp]
	}
	omega[nroots] = a0

	/*
	 * Forney algorithm: compute the error values in polynomial form.
	 */
	for j := count - 1; j >= 0; j-- {
		var num1 byte
		for i := degOmega; i >= 0; i-- {
			if omega[i] != a0 {
				num1 ^= r.alphaTo[r.modnn(int(omega[i])+i*root[j])]
			}
		}
		var num2 = r.alphaTo[r.modnn(root[j]*(r.fcr-1)+r.nn)]
		var den byte

		// lambda[i+1] for even i is the formal derivative of lambda.
		var start = degLambda
		if nroots-1 < start {
			start = nroots - 1
		}
		start &^= 1
		for i := start; i >= 0; i -= 2 {
			if lambda[i+1] != a0 {
				den ^= r.alphaTo[r.modnn(int(lambda[i+1])+i*root[j])]
			}
		}
		if den == 0 {
			return -1
		}
		// Apply the correction.
		if num1 != 0 {
			data[loc[j]] ^= r.alphaTo[r.modnn(int(r.indexOf[num1])+int(r.indexOf[num2])+r.nn-int(r.indexOf[den]))]
		}
	}

	if errLocs != nil {
		copy(errLocs, loc[:count])
	}
	return count
}
