package api

import (
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/sellerhub"
	"github.com/MrEthical07/sellerhub/blob"
	"github.com/MrEthical07/sellerhub/catalog"
	"github.com/MrEthical07/sellerhub/middleware"
	"github.com/MrEthical07/sellerhub/validation"
	"github.com/gorilla/mux"
)

const (
	imageField       = "image"
	multipartMemory  = 32 << 20
	multipartOverrun = 1 << 20
)

var (
	errBadMultipart = &sellerhub.Error{Kind: sellerhub.KindValidation, Message: "invalid multipart body"}
	errBodyTooLarge = &sellerhub.Error{Kind: sellerhub.KindValidation, Message: "request body too large"}
)

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.products.ListBySeller(r.Context(), middleware.SubjectID(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.success(w, http.StatusOK, envelope{
		"results":  len(products),
		"products": products,
	})
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.products.GetForSeller(r.Context(), middleware.SubjectID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.success(w, http.StatusOK, envelope{"product": p})
}

func (s *Server) addProduct(w http.ResponseWriter, r *http.Request) {
	in, files, err := s.readProductForm(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	p, err := s.products.Create(r.Context(), middleware.SubjectID(r.Context()), in, files)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.success(w, http.StatusCreated, envelope{
		"message": "Product added successfully",
		"product": p,
	})
}

func (s *Server) editProduct(w http.ResponseWriter, r *http.Request) {
	in, files, err := s.readProductForm(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	id := strings.TrimSpace(r.PostFormValue("id"))
	if id == "" {
		s.fail(w, r, sellerhub.ErrValidation.WithFields(validation.Errors{
			{Field: "id", Tag: "required", Message: "is required"},
		}))
		return
	}

	p, err := s.products.Update(r.Context(), middleware.SubjectID(r.Context()), id, in, files)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.success(w, http.StatusOK, envelope{
		"message": "Product updated successfully",
		"product": p,
	})
}

// readProductForm parses a multipart (or urlencoded) product form. Numeric
// fields that do not parse are reported as field errors. Each file is read
// up to one byte past the size limit so the catalog can reject it without
// buffering the rest.
func (s *Server) readProductForm(w http.ResponseWriter, r *http.Request) (catalog.Input, []blob.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, catalog.MaxImages*catalog.MaxImageSize+multipartOverrun)

	err := r.ParseMultipartForm(multipartMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		if isMaxBytes(err) {
			return catalog.Input{}, nil, errBodyTooLarge.Wrap(err)
		}
		return catalog.Input{}, nil, errBadMultipart.Wrap(err)
	}

	in := catalog.Input{
		Name:        r.PostFormValue("productName"),
		Category:    r.PostFormValue("category"),
		Brand:       r.PostFormValue("brand"),
		Description: r.PostFormValue("description"),
	}

	var fields validation.Errors
	if v := strings.TrimSpace(r.PostFormValue("price")); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		switch {
		case err != nil:
			fields = append(fields, validation.FieldError{Field: "price", Tag: "number", Message: "must be a number"})
		case math.IsNaN(price) || math.IsInf(price, 0):
			fields = append(fields, validation.FieldError{Field: "price", Tag: "number", Message: "must be a finite number"})
		}
		in.Price = price
	}
	// stockQuantity may legitimately be 0, so presence is checked here
	// rather than with a required tag.
	if v := strings.TrimSpace(r.PostFormValue("stockQuantity")); v != "" {
		qty, err := strconv.Atoi(v)
		if err != nil {
			fields = append(fields, validation.FieldError{Field: "stockQuantity", Tag: "number", Message: "must be a whole number"})
		}
		in.StockQuantity = qty
	} else {
		fields = append(fields, validation.FieldError{Field: "stockQuantity", Tag: "required", Message: "is required"})
	}
	if v := strings.TrimSpace(r.PostFormValue("isActive")); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			fields = append(fields, validation.FieldError{Field: "isActive", Tag: "boolean", Message: "must be true or false"})
		}
		in.IsActive = active
	}
	if len(fields) > 0 {
		return catalog.Input{}, nil, sellerhub.ErrValidation.WithFields(fields)
	}

	if r.MultipartForm == nil {
		return in, nil, nil
	}

	headers := r.MultipartForm.File[imageField]
	files := make([]blob.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readFile(fh)
		if err != nil {
			return catalog.Input{}, nil, errBadMultipart.Wrap(err)
		}
		files = append(files, f)
	}

	return in, files, nil
}

func readFile(fh *multipart.FileHeader) (blob.File, error) {
	src, err := fh.Open()
	if err != nil {
		return blob.File{}, err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, catalog.MaxImageSize+1))
	if err != nil {
		return blob.File{}, err
	}

	return blob.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
