package services

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/mwx/internal/shared"
)

const (
	soapEnvNS = "http://schemas.xmlsoap.org/soap/envelope/"
	xsiNS     = "http://www.w3.org/2001/XMLSchema-instance"
	xsdNS     = "http://www.w3.org/2001/XMLSchema"
)

// Fault is a SOAP fault returned by the webservice.
type Fault struct {
	Code    string `xml:"faultcode"`
	Message string `xml:"faultstring"`
	Actor   string `xml:"faultactor"`
	Detail  string `xml:"detail"`
}

func (f *Fault) Error() string {
	if f.Code == "" {
		return fmt.Sprintf("soap fault: %s", f.Message)
	}
	return fmt.Sprintf("soap fault %s: %s", f.Code, f.Message)
}

type requestEnvelope struct {
	XMLName xml.Name    `xml:"soap:Envelope"`
	SoapNS  string      `xml:"xmlns:soap,attr"`
	XSINS   string      `xml:"xmlns:xsi,attr"`
	XSDNS   string      `xml:"xmlns:xsd,attr"`
	Body    requestBody `xml:"soap:Body"`
}

type requestBody struct {
	Operation operation
}

type operation struct {
	XMLName xml.Name
	Request any `xml:"request"`
}

// responseEnvelope decodes <Envelope><Body><OpResponse><OpResult>.
type responseEnvelope[T any] struct {
	Body struct {
		Fault    *Fault `xml:"Fault"`
		Response struct {
			Result result[T] `xml:",any"`
		} `xml:",any"`
	} `xml:"Body"`
}

// result holds an operation result. value stays nil when the element is absent or xsi:nil.
type result[T any] struct {
	value *T
}

func (r *result[T]) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "nil" && attr.Value == "true" {
			return d.Skip()
		}
	}

	var v T
	if err := d.DecodeElement(&v, &start); err != nil {
		return err
	}
	r.value = &v
	return nil
}

// typed writes Value with an xsi:type attribute, used for the polymorphic types of the service.
type typed struct {
	Type  string
	Value any
}

func (t typed) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = append(start.Attr, xsiType(t.Type))
	return e.EncodeElement(t.Value, start)
}

func xsiType(name string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: "xsi:type"}, Value: name}
}

// encodeEnvelope renders a request for the given operation.
func encodeEnvelope(namespace, op string, req any) ([]byte, error) {
	env := requestEnvelope{
		SoapNS: soapEnvNS,
		XSINS:  xsiNS,
		XSDNS:  xsdNS,
		Body: requestBody{
			Operation: operation{
				XMLName: xml.Name{Space: namespace, Local: op},
				Request: req,
			},
		},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", op, err)
	}
	return buf.Bytes(), nil
}

// decodeEnvelope extracts the operation result or the fault from a response body.
func decodeEnvelope[T any](body []byte) (*T, error) {
	var env responseEnvelope[T]
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if env.Body.Fault != nil {
		return nil, env.Body.Fault
	}
	return env.Body.Response.Result.value, nil
}

// call performs one SOAP round trip. A nil result with a nil error means the webservice returned no result.
func call[T any](ctx context.Context, c *Client, op string, req any) (*T, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, op, err)
		}
	}

	payload, err := encodeEnvelope(c.namespace, op, req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "text/xml; charset=utf-8")
	httpReq.Header.Set("SOAPAction", fmt.Sprintf("%q", c.namespace+op))

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: request failed: %v", shared.ErrAPIRequest, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to read response: %v", shared.ErrAPIRequest, op, err)
	}

	c.logger.Debug("soap call", "op", op, "status", resp.StatusCode, "duration", time.Since(start))

	result, decodeErr := decodeEnvelope[T](body)
	if fault, ok := decodeErr.(*Fault); ok {
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrAPIRequest, op, fault)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: status %d", shared.ErrAPIRequest, op, resp.StatusCode)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, op, decodeErr)
	}

	return result, nil
}
